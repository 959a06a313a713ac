package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"

	membershipdomain "org-credential-broker/internal/membership/domain"
	"org-credential-broker/internal/policy/repository"
)

const minRoleQuery = "data.broker.actions.min_role"

// Default Rego policy: reads need membership, everything else needs admin.
const defaultRegoPolicy = `package broker.actions

default min_role := "member"

min_role := "admin" if {
	not read_method
}

read_method if input.method == "GET"

read_method if input.method == "HEAD"
`

// ErrNoDecision is returned when the policy yields no usable role.
var ErrNoDecision = errors.New("policy returned no role")

// OPAEvaluator evaluates the action policy with OPA Rego. The base module is compiled once;
// orgs with enabled policies in the repository get their own modules compiled per call.
type OPAEvaluator struct {
	policyRepo repository.Repository
	base       rego.PreparedEvalQuery
	logger     *slog.Logger
}

// NewOPAEvaluator compiles module (the default policy when empty). policyRepo may be nil.
func NewOPAEvaluator(ctx context.Context, module string, policyRepo repository.Repository, logger *slog.Logger) (*OPAEvaluator, error) {
	if strings.TrimSpace(module) == "" {
		module = defaultRegoPolicy
	}
	if logger == nil {
		logger = slog.Default()
	}
	pq, err := prepare(ctx, []string{module})
	if err != nil {
		return nil, err
	}
	return &OPAEvaluator{policyRepo: policyRepo, base: pq, logger: logger}, nil
}

// LoadOPAEvaluator reads the base module from path, or uses the default policy when path is empty.
func LoadOPAEvaluator(ctx context.Context, path string, policyRepo repository.Repository, logger *slog.Logger) (*OPAEvaluator, error) {
	if path == "" {
		return NewOPAEvaluator(ctx, "", policyRepo, logger)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read action policy: %w", err)
	}
	return NewOPAEvaluator(ctx, string(b), policyRepo, logger)
}

func prepare(ctx context.Context, policies []string) (rego.PreparedEvalQuery, error) {
	modules := make(map[string]string, len(policies))
	for i, p := range policies {
		modules[fmt.Sprintf("policy_%d.rego", i)] = p
	}
	compiler, err := ast.CompileModules(modules)
	if err != nil {
		return rego.PreparedEvalQuery{}, fmt.Errorf("compile policies: %w", err)
	}
	pq, err := rego.New(
		rego.Query(minRoleQuery),
		rego.Compiler(compiler),
	).PrepareForEval(ctx)
	if err != nil {
		return rego.PreparedEvalQuery{}, fmt.Errorf("prepare policy query: %w", err)
	}
	return pq, nil
}

// HealthCheck evaluates the base policy against a read action. Does not touch the repository.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	_, err := e.eval(ctx, e.base, ActionInput{Action: "health", Method: "GET"})
	return err
}

// MinimumRole implements Evaluator.
func (e *OPAEvaluator) MinimumRole(ctx context.Context, in ActionInput) (membershipdomain.Role, error) {
	pq := e.base
	if e.policyRepo != nil && in.OrgID != "" {
		orgPQ, ok, err := e.orgQuery(ctx, in.OrgID)
		if err != nil {
			e.logger.WarnContext(ctx, "policy: org policies unavailable, using base policy",
				"org_id", in.OrgID, "error", err)
		} else if ok {
			pq = orgPQ
		}
	}
	return e.eval(ctx, pq, in)
}

func (e *OPAEvaluator) orgQuery(ctx context.Context, orgID string) (rego.PreparedEvalQuery, bool, error) {
	enabled, err := e.policyRepo.GetEnabledPoliciesByOrg(ctx, orgID)
	if err != nil {
		return rego.PreparedEvalQuery{}, false, err
	}
	var policies []string
	for _, p := range enabled {
		if p.Enabled && p.Rules != "" {
			policies = append(policies, p.Rules)
		}
	}
	if len(policies) == 0 {
		return rego.PreparedEvalQuery{}, false, nil
	}
	pq, err := prepare(ctx, policies)
	if err != nil {
		return rego.PreparedEvalQuery{}, false, err
	}
	return pq, true, nil
}

func (e *OPAEvaluator) eval(ctx context.Context, pq rego.PreparedEvalQuery, in ActionInput) (membershipdomain.Role, error) {
	input := map[string]interface{}{
		"org_id": in.OrgID,
		"action": in.Action,
		"method": strings.ToUpper(in.Method),
		"table":  in.Table,
	}
	rs, err := pq.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("eval policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return "", ErrNoDecision
	}
	s, ok := rs[0].Expressions[0].Value.(string)
	if !ok {
		return "", fmt.Errorf("%w: min_role is %T", ErrNoDecision, rs[0].Expressions[0].Value)
	}
	role, ok := membershipdomain.ParseRole(s)
	if !ok {
		return "", fmt.Errorf("%w: unknown role %q", ErrNoDecision, s)
	}
	return role, nil
}
