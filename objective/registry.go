package objective

import (
	"sort"
	"sync"

	"github.com/YuminosukeSato/gbobjective/pkg/errors"
)

// Factory builds an unconfigured objective. name is the registered name the
// instance reports from Name.
type Factory func(name string, ctx *Context) Objective

type entry struct {
	description string
	factory     Factory
}

// Registry maps exact names to objective factories. Once frozen it rejects
// further registration and is safe for concurrent lookups.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
	frozen  bool
}

// NewRegistry returns an empty, unfrozen registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register adds factory under name.
func (r *Registry) Register(name, description string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return errors.Newf("objective registry is frozen; cannot register %q", name)
	}
	if name == "" || factory == nil {
		return errors.NewConfigurationError("objective.Register", "name", "name and factory are required", name)
	}
	if _, dup := r.entries[name]; dup {
		return errors.Newf("objective %q is already registered", name)
	}
	r.entries[name] = entry{description: description, factory: factory}
	return nil
}

// Freeze makes the registry immutable.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Create instantiates the objective registered under name.
func (r *Registry) Create(name string, ctx *Context) (Objective, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.NewNotFoundError("objective", name, r.Names())
	}
	return e.factory(name, ctx), nil
}

// Names returns every registered name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for n := range r.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Describe returns the description registered with name.
func (r *Registry) Describe(name string) (string, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return "", errors.NewNotFoundError("objective", name, r.Names())
	}
	return e.description, nil
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the frozen registry of built-in objectives.
func Default() *Registry {
	defaultOnce.Do(func() {
		r := NewRegistry()
		for _, b := range builtins {
			if err := r.Register(b.name, b.description, b.factory); err != nil {
				panic(err)
			}
		}
		r.Freeze()
		defaultRegistry = r
	})
	return defaultRegistry
}

// Create instantiates a built-in objective.
func Create(name string, ctx *Context) (Objective, error) {
	return Default().Create(name, ctx)
}

type builtin struct {
	name        string
	description string
	factory     Factory
}

var builtins = []builtin{
	{"reg:squarederror", "Squared error regression.",
		regressionFactory(regVariant{kind: TaskRegression, constHess: true, multi: true, link: identityLink, metric: "rmse"},
			func() regKernel { return squaredError{} })},
	{"squared-error-regression", "Alias of reg:squarederror.",
		regressionFactory(regVariant{kind: TaskRegression, constHess: true, multi: true, link: identityLink, metric: "rmse"},
			func() regKernel { return squaredError{} })},
	{"reg:squaredlogerror", "Squared log error regression; labels must be > -1.",
		regressionFactory(regVariant{kind: TaskRegression, multi: true, link: identityLink, metric: "rmsle"},
			func() regKernel { return squaredLogError{} })},
	{"reg:pseudohubererror", "Pseudo-Huber regression with slope huber_slope.",
		regressionFactory(regVariant{kind: TaskRegression, multi: true, link: identityLink, metric: "mphe"},
			func() regKernel { return &pseudoHuber{slope: 1} })},
	{"reg:fair", "Fair loss regression with scale fair_c.",
		regressionFactory(regVariant{kind: TaskRegression, multi: true, link: identityLink, metric: "mae"},
			func() regKernel { return &fair{c: 1} })},
	{"reg:logistic", "Logistic regression for labels in [0, 1].",
		regressionFactory(regVariant{kind: TaskRegression, link: sigmoidLink, metric: "rmse"},
			func() regKernel { return &logistic{scalePos: 1} })},
	{"binary:logistic", "Binary classification; outputs probabilities.",
		regressionFactory(regVariant{kind: TaskBinary, link: sigmoidLink, metric: "logloss"},
			func() regKernel { return &logistic{scalePos: 1} })},
	{"binary:logitraw", "Binary classification; outputs margins.",
		regressionFactory(regVariant{kind: TaskBinary, link: identityLink, metric: "auc"},
			func() regKernel { return &logistic{scalePos: 1} })},
	{"binary:hinge", "Hinge loss binary classification; outputs 0 or 1.",
		regressionFactory(regVariant{kind: TaskBinary, link: hingeLink, metric: "error"},
			func() regKernel { return hinge{} })},
	{"count:poisson", "Poisson regression for counts.",
		regressionFactory(regVariant{kind: TaskRegression, link: expLink, metric: "poisson-nloglik"},
			func() regKernel { return &poisson{maxDeltaStep: 0.7} })},
	{"reg:gamma", "Gamma regression with log link; labels must be > 0.",
		regressionFactory(regVariant{kind: TaskRegression, link: expLink, metric: "gamma-nloglik"},
			func() regKernel { return gamma{} })},
	{"reg:tweedie", "Tweedie regression with log link.",
		regressionFactory(regVariant{kind: TaskRegression, link: expLink, metric: "tweedie-nloglik"},
			func() regKernel { return &tweedie{rho: 1.5} })},
	{"survival:cox", "Cox proportional hazards; negative labels are censored.", newCox},
	{"reg:absoluteerror", "Absolute error regression with median leaf update.", newAbsoluteError},
	{"reg:quantileerror", "Quantile regression, one output per quantile_alpha.", newQuantileError},
	{"multi:softprob", "Multiclass softmax; outputs probabilities.", newSoftprob},
	{"multi:softmax", "Multiclass softmax; outputs class indices.", newSoftmax},
	{"rank:pairwise", "Pairwise logistic ranking.", rankFactory(lambdaPairwise)},
	{"rank:ndcg", "LambdaRank weighted by NDCG change.", rankFactory(lambdaNDCG)},
	{"rank:map", "LambdaRank weighted by MAP change.", rankFactory(lambdaMAP)},
}
