package mathsafe

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/nerdneilsfield/go-math-translator/pkg/providers"
	"github.com/nerdneilsfield/go-math-translator/pkg/providers/raw"
)

// funcProvider 用函数实现的测试提供商
type funcProvider func(ctx context.Context, req *providers.Request) providers.Result

func (f funcProvider) Rewrite(ctx context.Context, req *providers.Request) providers.Result {
	return f(ctx, req)
}

func (f funcProvider) GetName() string { return "func" }

// dictionary 按词表替换的假翻译
func dictionary(pairs ...string) funcProvider {
	r := strings.NewReplacer(pairs...)
	return func(ctx context.Context, req *providers.Request) providers.Result {
		return providers.Success(r.Replace(req.Text))
	}
}

func newTranslator(t *testing.T, p providers.Provider, opts ...Option) *Translator {
	t.Helper()
	tr, err := New(p, DefaultConfig(), opts...)
	require.NoError(t, err)
	return tr
}

func TestNew_NilProvider(t *testing.T) {
	_, err := New(nil, DefaultConfig())
	assert.Error(t, err)
}

func TestTranslate_NothingToTranslate(t *testing.T) {
	tr := newTranslator(t, raw.New())
	for _, input := range []string{"", "   ", "\n\t "} {
		_, err := tr.Translate(context.Background(), input)
		assert.ErrorIs(t, err, ErrNothingToTranslate, "input %q", input)
	}
}

func TestTranslate_MatrixSurvivesRewrite(t *testing.T) {
	tr := newTranslator(t, dictionary("Матрица", "The matrix", "обратима", "is invertible"))

	out, err := tr.Translate(context.Background(), "Матрица [[1,2],[3,4]] обратима.")
	require.NoError(t, err)

	assert.True(t, out.Translated)
	assert.Equal(t, "The matrix [[1,2],[3,4]] is invertible.", out.Text)
	assert.Equal(t, "Матрица [MATH_EXPR_0] обратима.", out.Masked)
	assert.Equal(t, 1, out.Placeholders)
	assert.Empty(t, out.MissingPlaceholders)
	assert.NotEmpty(t, out.RequestID)
}

func TestTranslate_ProviderSeesOnlyPlaceholders(t *testing.T) {
	var seen string
	tr := newTranslator(t, funcProvider(func(ctx context.Context, req *providers.Request) providers.Result {
		seen = req.Text
		assert.Equal(t, "ru", req.SourceLang)
		assert.Equal(t, "en", req.TargetLang)
		return providers.Success(req.Text)
	}))

	out, err := tr.Translate(context.Background(), "Энергия E=mc^2 и число π")
	require.NoError(t, err)

	assert.Equal(t, "Энергия [MATH_EXPR_0] и число [MATH_EXPR_1]", seen)
	assert.Equal(t, "Энергия E=mc^2 и число π", out.Text)
}

func TestTranslate_FailOpen(t *testing.T) {
	tests := []struct {
		name     string
		provider funcProvider
		timeout  time.Duration
		wantCode string
	}{
		{
			name: "network failure",
			provider: func(ctx context.Context, req *providers.Request) providers.Result {
				return providers.Failed(providers.NewError(providers.CodeNetwork, "connection refused"))
			},
			wantCode: providers.CodeNetwork,
		},
		{
			name: "empty candidate",
			provider: func(ctx context.Context, req *providers.Request) providers.Result {
				return providers.Success("  ")
			},
			wantCode: providers.CodeEmptyResponse,
		},
		{
			name: "malformed response",
			provider: func(ctx context.Context, req *providers.Request) providers.Result {
				return providers.Failed(providers.NewError(providers.CodeMalformedResponse, "bad json"))
			},
			wantCode: providers.CodeMalformedResponse,
		},
		{
			name: "panic",
			provider: func(ctx context.Context, req *providers.Request) providers.Result {
				panic("boom")
			},
			wantCode: providers.CodePanic,
		},
		{
			name: "ignores context",
			provider: func(ctx context.Context, req *providers.Request) providers.Result {
				time.Sleep(time.Second)
				return providers.Success("late")
			},
			timeout:  20 * time.Millisecond,
			wantCode: providers.CodeTimeout,
		},
		{
			name: "honours context",
			provider: func(ctx context.Context, req *providers.Request) providers.Result {
				<-ctx.Done()
				return providers.Failed(providers.WrapError(ctx.Err(), providers.CodeNetwork, "aborted"))
			},
			timeout:  20 * time.Millisecond,
			wantCode: providers.CodeTimeout,
		},
	}

	const input = "Решите x^2 = 4 быстро"
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			if tt.timeout > 0 {
				cfg.Timeout = tt.timeout
			}
			tr, err := New(tt.provider, cfg)
			require.NoError(t, err)

			out, err := tr.Translate(context.Background(), input)
			require.NoError(t, err)

			assert.False(t, out.Translated)
			assert.Equal(t, input, out.Text)
			require.NotNil(t, out.Failure)
			assert.Equal(t, tt.wantCode, out.Failure.Code)
		})
	}
}

func TestTranslate_DroppedPlaceholderIsReported(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	tr := newTranslator(t, funcProvider(func(ctx context.Context, req *providers.Request) providers.Result {
		return providers.Success("Energy [MATH_EXPR_0], and [MATH_EXPR_7]")
	}), WithLogger(zap.New(core)))

	out, err := tr.Translate(context.Background(), "Энергия E=mc^2 и π")
	require.NoError(t, err)

	assert.True(t, out.Translated)
	assert.Equal(t, "Energy E=mc^2, and [MATH_EXPR_7]", out.Text)
	assert.Equal(t, []int{1}, out.MissingPlaceholders)
	assert.Equal(t, []string{"[MATH_EXPR_7]"}, out.UnknownTokens)
	assert.Equal(t, 1, logs.FilterMessage("translation dropped placeholders").Len())
	assert.Equal(t, 1, logs.FilterMessage("translation contains unknown placeholders").Len())
}

func TestTranslate_RawRoundTrip(t *testing.T) {
	tr := newTranslator(t, raw.New())

	inputs := []string{
		"Prose without any math at all.",
		"$$\\int_0^1 x\\,dx$$ and \\(a+b\\)",
		"Literal [MATH_EXPR_0] next to x^2 = 4",
		"det(A) ≠ 0, Aᵀ and x₁",
	}
	for _, input := range inputs {
		out, err := tr.Translate(context.Background(), input)
		require.NoError(t, err)
		assert.Equal(t, input, out.Text)
		assert.Empty(t, out.MissingPlaceholders)
		assert.Equal(t, "raw", out.Model)
	}
}

func TestTranslate_Concurrent(t *testing.T) {
	tr := newTranslator(t, dictionary("равно", "equals"))

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			input := fmt.Sprintf("x = %d равно %d + %d", i, i, i)
			out, err := tr.Translate(context.Background(), input)
			if !assert.NoError(t, err) {
				return
			}
			assert.Equal(t, fmt.Sprintf("x = %d equals %d + %d", i, i, i), out.Text)
		}(i)
	}
	wg.Wait()
}

type observation struct {
	provider string
	code     string
	latency  time.Duration
}

type recordingObserver struct {
	mu   sync.Mutex
	seen []observation
}

func (r *recordingObserver) Observe(provider string, req *providers.Request, result providers.Result, latency time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o := observation{provider: provider, latency: latency}
	if !result.OK() {
		o.code = result.Failure.Code
	}
	r.seen = append(r.seen, o)
}

func TestTranslate_ObserverSeesEveryCall(t *testing.T) {
	rec := &recordingObserver{}
	release := make(chan struct{})
	defer close(release)

	calls := 0
	provider := funcProvider(func(ctx context.Context, req *providers.Request) providers.Result {
		calls++
		switch calls {
		case 1:
			return providers.Success(req.Text)
		case 2:
			panic("boom")
		default:
			<-release
			return providers.Success(req.Text)
		}
	})

	cfg := DefaultConfig()
	cfg.Timeout = 20 * time.Millisecond
	tr, err := New(provider, cfg, WithObserver(rec), WithObserver(nil))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := tr.Translate(context.Background(), "x^2 = 4")
		require.NoError(t, err)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.seen, 3)
	assert.Equal(t, "func", rec.seen[0].provider)
	assert.Empty(t, rec.seen[0].code)
	assert.Equal(t, providers.CodePanic, rec.seen[1].code)
	assert.Equal(t, providers.CodeTimeout, rec.seen[2].code)
	assert.GreaterOrEqual(t, rec.seen[2].latency, 20*time.Millisecond)
}
