package errors

import (
	"fmt"
	"math"
	"strings"
	"testing"
	"time"
)

func TestNewConfigurationError(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		key     string
		reason  string
		value   interface{}
		wantMsg string
	}{
		{
			name:    "with key",
			op:      "reg:quantileerror.Configure",
			key:     "quantile_alpha",
			reason:  "must be in [0, 1]",
			value:   -0.1,
			wantMsg: "gbobjective: reg:quantileerror.Configure: invalid value for 'quantile_alpha': must be in [0, 1] (got: -0.1)",
		},
		{
			name:    "without key",
			op:      "reg:gamma.Targets",
			reason:  "multiple targets are not supported",
			wantMsg: "gbobjective: reg:gamma.Targets: invalid configuration: multiple targets are not supported",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewConfigurationError(tt.op, tt.key, tt.reason, tt.value)

			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			// スタックトレースの存在確認
			formatted := fmt.Sprintf("%+v", err)
			if !strings.Contains(formatted, "errors_test.go") {
				t.Error("Expected stack trace to contain test file name")
			}

			if !IsConfiguration(err) {
				t.Error("Error should be classified as a configuration error")
			}
			if IsData(err) || IsNumeric(err) || IsSynchronization(err) {
				t.Error("Configuration error must not match other classes")
			}
		})
	}
}

func TestNewNotFoundError(t *testing.T) {
	err := NewNotFoundError("objective", "does-not-exist", []string{"reg:gamma", "count:poisson"})

	want := "gbobjective: unknown objective 'does-not-exist'; registered: [count:poisson, reg:gamma]"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}
	if !IsNotFound(err) {
		t.Error("Error should be castable to *NotFoundError")
	}
	// 名前検索の失敗は利用者が修正可能な設定エラーとして扱う
	if !IsConfiguration(err) {
		t.Error("NotFoundError should be classified as a configuration error")
	}
}

func TestNewDataError(t *testing.T) {
	rows := make([]int, 15)
	for i := range rows {
		rows[i] = i * 2
	}
	err := NewDataError("count:poisson.GetGradient", "label must be >= 0", rows)

	var dataErr *DataError
	if !As(err, &dataErr) {
		t.Fatal("Error should be castable to *DataError")
	}
	if dataErr.Total != 15 {
		t.Errorf("Total = %d, want 15", dataErr.Total)
	}
	if len(dataErr.Rows) != maxReportedRows {
		t.Errorf("len(Rows) = %d, want %d", len(dataErr.Rows), maxReportedRows)
	}
	if !strings.Contains(err.Error(), "15 offending row(s): [0, 2, 4") {
		t.Errorf("unexpected message: %s", err.Error())
	}
	if !strings.HasSuffix(err.Error(), ", ...]") {
		t.Errorf("truncated row list should end with ellipsis: %s", err.Error())
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("GetGradient", "gradient buffer", 10, 8)

	want := "gbobjective: GetGradient: length mismatch for gradient buffer. Expected 10, got 8"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var dimErr *DimensionError
	if !As(err, &dimErr) {
		t.Error("Error should be castable to *DimensionError")
	}
}

func TestNewNumericError(t *testing.T) {
	err := NewNumericError("reg:gamma.GetGradient", 3, 1, []float64{1, 2, 3, 4, 5, 6}, 7)

	if !IsNumeric(err) {
		t.Fatal("Error should be castable to *NumericalInstabilityError")
	}
	msg := err.Error()
	for _, part := range []string{"iteration 7", "row 3, target 1", "..."} {
		if !strings.Contains(msg, part) {
			t.Errorf("message %q should contain %q", msg, part)
		}
	}

	noRow := NewNumericalInstabilityError("leaf.Aggregate", []float64{0}, 0)
	if strings.Contains(noRow.Error(), "row") {
		t.Errorf("message without row context should not mention a row: %s", noRow.Error())
	}
}

func TestNewSynchronizationError(t *testing.T) {
	cause := New("context deadline exceeded")
	err := NewSynchronizationError("AllreduceSum", 2, 50*time.Millisecond, cause)

	if !IsSynchronization(err) {
		t.Fatal("Error should be castable to *SynchronizationError")
	}
	if !Is(err, cause) {
		t.Error("SynchronizationError should unwrap to its cause")
	}
	if !strings.Contains(err.Error(), "rank 2 failed to synchronize within 50ms") {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestWrapAndIs(t *testing.T) {
	wrapped := Wrap(ErrTreeFrozen, "set leaf 3")
	if !Is(wrapped, ErrTreeFrozen) {
		t.Error("Expected wrapped error to match ErrTreeFrozen")
	}

	wrappedf := Wrapf(ErrNotConfigured, "objective %s", "reg:gamma")
	if !strings.Contains(wrappedf.Error(), "objective reg:gamma") {
		t.Errorf("unexpected message: %s", wrappedf.Error())
	}
	if !Is(wrappedf, ErrNotConfigured) {
		t.Error("Expected wrapped error to match ErrNotConfigured")
	}
}

func TestNumericalHelpers(t *testing.T) {
	if ClampHessian(0) != HessianFloor {
		t.Error("ClampHessian(0) should return the floor")
	}
	if ClampHessian(-1) != HessianFloor {
		t.Error("ClampHessian(-1) should return the floor")
	}
	if ClampHessian(0.25) != 0.25 {
		t.Error("ClampHessian should not alter values above the floor")
	}
	if err := CheckPair("op", 1, 1, 0, 0, 0); err != nil {
		t.Errorf("finite pair should pass: %v", err)
	}
	if err := CheckPair("op", 1, math.Inf(1), 4, 0, 2); !IsNumeric(err) {
		t.Error("infinite hessian should yield a numeric error")
	}
	if v := StabilizeExp(1e6); !IsFinite(v) {
		t.Error("StabilizeExp should never overflow")
	}
	if v := LogSumExp([]float64{1000, 1000}); v < 1000.69 || v > 1000.7 {
		t.Errorf("LogSumExp = %v, want ~1000.693", v)
	}
}
