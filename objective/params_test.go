package objective

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/gbobjective/pkg/errors"
)

func TestConfigureRejectsOutOfRange(t *testing.T) {
	testCases := []struct {
		name string
		args Args
	}{
		{"reg:pseudohubererror", Args{"huber_slope": "0"}},
		{"reg:fair", Args{"fair_c": "-1"}},
		{"binary:logistic", Args{"scale_pos_weight": "-0.5"}},
		{"binary:logistic", Args{"scale_pos_weight": "abc"}},
		{"count:poisson", Args{"max_delta_step": "-1"}},
		{"count:poisson", Args{"max_delta_step": "NaN"}},
		{"reg:tweedie", Args{"tweedie_variance_power": "2"}},
		{"reg:tweedie", Args{"tweedie_variance_power": "0.9"}},
		{"reg:quantileerror", Args{"quantile_alpha": "-0.1"}},
		{"reg:quantileerror", Args{"quantile_alpha": "[0.2,1.5]"}},
		{"reg:quantileerror", Args{"quantile_alpha": "[]"}},
		{"multi:softprob", Args{}},
		{"multi:softprob", Args{"num_class": "0"}},
		{"multi:softmax", Args{"num_class": "2.5"}},
		{"rank:pairwise", Args{"num_pairsample": "0"}},
		{"rank:ndcg", Args{"fix_list_weight": "-1"}},
		{"rank:map", Args{"seed": "x"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			obj, err := Create(tc.name, nil)
			require.NoError(t, err)
			err = obj.Configure(tc.args)
			require.Error(t, err)
			assert.True(t, errors.IsConfiguration(err), "%v", err)
		})
	}
}

func TestConfigureToleratesUnknownKeys(t *testing.T) {
	obj := configured(t, "reg:gamma", Args{"eta": "0.3", "max_depth": "6"})
	assert.Equal(t, Args{}, obj.Config())
}

func TestConfig(t *testing.T) {
	obj := configured(t, "reg:quantileerror", Args{"quantile_alpha": " 0.1, 0.5 ,0.9"})
	assert.Equal(t, Args{"quantile_alpha": "[0.1,0.5,0.9]"}, obj.Config())

	obj = configured(t, "rank:ndcg", Args{"seed": "-3"})
	assert.Equal(t, Args{"num_pairsample": "1", "fix_list_weight": "0", "seed": "-3"}, obj.Config())

	obj = configured(t, "count:poisson", nil)
	assert.Equal(t, Args{"max_delta_step": "0.7"}, obj.Config())
}

func TestRankSeedDefaultsToContext(t *testing.T) {
	ctx := DefaultContext()
	ctx.Seed = 99
	obj, err := Create("rank:pairwise", ctx)
	require.NoError(t, err)
	require.NoError(t, obj.Configure(nil))
	assert.Equal(t, "99", obj.Config()["seed"])
}

func TestJSONRoundTrip(t *testing.T) {
	testCases := []struct {
		name string
		args Args
	}{
		{"reg:pseudohubererror", Args{"huber_slope": "0.1"}},
		{"reg:fair", Args{"fair_c": "0.30000000000000004"}},
		{"binary:logistic", Args{"scale_pos_weight": "1e-300"}},
		{"reg:tweedie", Args{"tweedie_variance_power": "1.0000001"}},
		{"reg:quantileerror", Args{"quantile_alpha": "[0.05,0.333333333333,0.95]"}},
		{"multi:softmax", Args{"num_class": "7"}},
		{"rank:map", Args{"num_pairsample": "4", "fix_list_weight": "2.5", "seed": "123456789012"}},
		{"survival:cox", nil},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			obj := configured(t, tc.name, tc.args)

			data, err := SaveJSON(obj)
			require.NoError(t, err)

			loaded, err := LoadJSON(data, nil, DefaultContext())
			require.NoError(t, err)
			assert.Equal(t, obj.Name(), loaded.Name())
			assert.Equal(t, obj.Config(), loaded.Config())

			again, err := SaveJSON(loaded)
			require.NoError(t, err)
			assert.JSONEq(t, string(data), string(again))
		})
	}
}

func TestLoadJSONErrors(t *testing.T) {
	_, err := LoadJSON([]byte(`{`), nil, nil)
	assert.Error(t, err)

	_, err = LoadJSON([]byte(`{"params":{}}`), nil, nil)
	assert.True(t, errors.IsConfiguration(err))

	_, err = LoadJSON([]byte(`{"name":"reg:nope","params":{}}`), nil, nil)
	assert.True(t, errors.IsNotFound(err))

	_, err = LoadJSON([]byte(`{"name":"reg:fair","params":{"fair_c":"-2"}}`), nil, nil)
	assert.True(t, errors.IsConfiguration(err))
}

// FuzzConfigure feeds arbitrary values to every recognized key. Configure
// must either succeed with a state that round-trips or fail with a
// configuration error.
func FuzzConfigure(f *testing.F) {
	f.Add("reg:quantileerror", "quantile_alpha", "[0.1,0.9]")
	f.Add("reg:tweedie", "tweedie_variance_power", "1.5")
	f.Add("multi:softprob", "num_class", "3")
	f.Add("rank:ndcg", "seed", "-9223372036854775808")
	f.Add("count:poisson", "max_delta_step", "1e309")
	f.Add("reg:fair", "fair_c", "0x1p-2")

	f.Fuzz(func(t *testing.T, name, key, value string) {
		obj, err := Create(name, nil)
		if err != nil {
			require.True(t, errors.IsNotFound(err))
			return
		}
		args := Args{key: value}
		if name == "multi:softprob" || name == "multi:softmax" {
			if key != "num_class" {
				args["num_class"] = "2"
			}
		}
		if err := obj.Configure(args); err != nil {
			require.True(t, errors.IsConfiguration(err), "%v", err)
			return
		}

		again, err := Create(name, nil)
		require.NoError(t, err)
		require.NoError(t, again.Configure(obj.Config()))
		require.Equal(t, obj.Config(), again.Config())
	})
}
