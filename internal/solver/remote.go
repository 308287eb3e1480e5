package solver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"fleetopt/internal/qubo"
)

// RemoteClient talks to a cloud annealing service over JSON/HTTP. One client
// serves both the hybrid and the QPU backends and lists the remote solvers
// only once.
type RemoteClient struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
	Limiter *rate.Limiter

	once    sync.Once
	solvers []RemoteSolver
	listErr error
}

// RemoteSolver is one entry of the service's solver listing.
type RemoteSolver struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

// NewRemoteClient paces calls at perSec requests per second (burst 1);
// perSec <= 0 disables pacing.
func NewRemoteClient(baseURL, token string, perSec float64) *RemoteClient {
	lim := rate.NewLimiter(rate.Inf, 1)
	if perSec > 0 {
		lim = rate.NewLimiter(rate.Limit(perSec), 1)
	}
	return &RemoteClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 60 * time.Second},
		Limiter: lim,
	}
}

func (c *RemoteClient) do(ctx context.Context, method, path string, in, out any) error {
	if c.BaseURL == "" {
		return fmt.Errorf("no annealer url configured: %w", ErrUnavailable)
	}
	if err := c.Limiter.Wait(ctx); err != nil {
		return err
	}
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("X-Auth-Token", c.Token)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

// Solvers lists the remote solvers. The first answer, success or failure,
// is kept for the life of the client.
func (c *RemoteClient) Solvers(ctx context.Context) ([]RemoteSolver, error) {
	c.once.Do(func() {
		var out struct {
			Solvers []RemoteSolver `json:"solvers"`
		}
		c.listErr = c.do(ctx, http.MethodGet, "/solvers", nil, &out)
		c.solvers = out.Solvers
	})
	return c.solvers, c.listErr
}

func (c *RemoteClient) pick(ctx context.Context, category string) (string, error) {
	solvers, err := c.Solvers(ctx)
	if err != nil {
		return "", err
	}
	for _, s := range solvers {
		if s.Category == category {
			return s.Name, nil
		}
	}
	return "", fmt.Errorf("no %s solver listed: %w", category, ErrUnavailable)
}

type problemRequest struct {
	Solver    string             `json:"solver"`
	Type      string             `json:"type"`
	Linear    map[string]float64 `json:"linear"`
	Quadratic [][3]float64       `json:"quadratic"`
	Offset    float64            `json:"offset"`
	Params    map[string]any     `json:"params,omitempty"`
}

type problemResponse struct {
	Sample map[string]int `json:"sample"`
	Energy float64        `json:"energy"`
}

func encodeProblem(p *qubo.Problem) problemRequest {
	req := problemRequest{Type: "qubo", Linear: map[string]float64{}, Quadratic: [][3]float64{}, Offset: p.Offset}
	adj := p.Adjacency()
	for _, v := range p.Variables() {
		req.Linear[strconv.Itoa(v)] = adj.Linear[v]
		for _, nb := range adj.Neighbors[v] {
			if nb.Var > v {
				req.Quadratic = append(req.Quadratic, [3]float64{float64(v), float64(nb.Var), nb.Coeff})
			}
		}
	}
	return req
}

func (c *RemoteClient) submit(ctx context.Context, solver string, p *qubo.Problem, params map[string]any) (qubo.Assignment, error) {
	req := encodeProblem(p)
	req.Solver = solver
	req.Params = params
	var resp problemResponse
	if err := c.do(ctx, http.MethodPost, "/problems", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Sample) == 0 {
		return nil, fmt.Errorf("empty sample from %s", solver)
	}
	a := make(qubo.Assignment, len(resp.Sample))
	for k, v := range resp.Sample {
		i, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("sample key %q: %w", k, err)
		}
		if v != 0 && v != 1 {
			return nil, fmt.Errorf("sample value %d for variable %d", v, i)
		}
		a[i] = v
	}
	return a, nil
}

// HybridSolver submits to a remote hybrid solver with a time limit.
type HybridSolver struct{ Client *RemoteClient }

func (HybridSolver) Name() Name { return Hybrid }

func (s HybridSolver) Probe(ctx context.Context) error {
	_, err := s.Client.pick(ctx, "hybrid")
	return err
}

func (s HybridSolver) Solve(ctx context.Context, p *qubo.Problem, opts Options) (qubo.Assignment, error) {
	if opts.TimeLimit > 0 {
		var cancel context.CancelFunc
		// remote queueing on top of the solver's own limit
		ctx, cancel = context.WithTimeout(ctx, 2*opts.TimeLimit+5*time.Second)
		defer cancel()
	}
	name, err := s.Client.pick(ctx, "hybrid")
	if err != nil {
		return nil, err
	}
	params := map[string]any{}
	if opts.TimeLimit > 0 {
		params["time_limit"] = opts.TimeLimit.Seconds()
	}
	return s.Client.submit(ctx, name, p, params)
}

// QPUSolver submits to remote annealing hardware for NumReads samples.
type QPUSolver struct{ Client *RemoteClient }

func (QPUSolver) Name() Name { return QPU }

func (s QPUSolver) Probe(ctx context.Context) error {
	_, err := s.Client.pick(ctx, "qpu")
	return err
}

func (s QPUSolver) Solve(ctx context.Context, p *qubo.Problem, opts Options) (qubo.Assignment, error) {
	name, err := s.Client.pick(ctx, "qpu")
	if err != nil {
		return nil, err
	}
	params := map[string]any{}
	if opts.NumReads > 0 {
		params["num_reads"] = opts.NumReads
	}
	return s.Client.submit(ctx, name, p, params)
}
