package testutil

// DefaultRunToken is the run token used when a scenario does not fix one.
// A stable default keeps golden trace files byte-identical across runs.
const DefaultRunToken = "test-run-default"

// FixedRunTokenGenerator returns the same run token every time.
//
// Unlike engine.FixedGenerator, which hands out a finite token sequence and
// panics on exhaustion, this generator never runs dry: every engine built
// with it gets the same token. That is what scenario re-runs and golden
// comparison need, where the run token must be a known constant.
//
// Thread-safety: FixedRunTokenGenerator is stateless and safe for
// concurrent use.
type FixedRunTokenGenerator struct {
	token string
}

// NewFixedRunTokenGenerator creates a fixed run token generator.
//
// The token is typically set in the scenario YAML:
//
//	run_token: "run-fixture-checkout-1"
//
// If token is empty, Generate() returns DefaultRunToken.
func NewFixedRunTokenGenerator(token string) *FixedRunTokenGenerator {
	if token == "" {
		token = DefaultRunToken
	}
	return &FixedRunTokenGenerator{token: token}
}

// Generate returns the fixed run token.
//
// Implements engine.TokenGenerator.
func (g *FixedRunTokenGenerator) Generate() string {
	return g.token
}
