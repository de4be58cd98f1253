package gxerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/graphix-lang/graphix/testutil"
)

func TestNewResolveErrorShape(t *testing.T) {
	rep := NewResolveError("std::missing", []string{"files: not found", "netidx: timeout"})
	require.Equal(t, RES001, rep.Code)
	require.Equal(t, PhaseResolve, rep.Phase)

	want := map[string]any{
		"modpath":  "std::missing",
		"attempts": []any{"files: not found", "netidx: timeout"},
	}
	if diff := testutil.DiffJSON(want, rep.Data); diff != "" {
		t.Errorf("Data mismatch (-want +got):\n%s", diff)
	}

	data, err := rep.ToJSON(true)
	require.NoError(t, err)
	require.Contains(t, data, `"code":"RES001"`)
	require.Contains(t, data, `"phase":"resolve"`)
}

func TestReportWrapAndAsReport(t *testing.T) {
	rep := NewGeneric(PhaseRuntime, RUN001, errors.New("division by zero"))
	err := rep.Wrap()
	require.Error(t, err)

	got, ok := AsReport(err)
	require.True(t, ok)
	require.Same(t, rep, got)

	wrapped := fmt.Errorf("while evaluating: %w", err)
	got2, ok2 := AsReport(wrapped)
	require.True(t, ok2)
	require.Equal(t, RUN001, got2.Code)
}

func TestReportErrorMessage(t *testing.T) {
	rep := &Report{Code: CST001, Message: "value does not match target type"}
	require.Equal(t, "CST001: value does not match target type", rep.Wrap().Error())

	var nilErr *ReportError
	require.Equal(t, "unknown error", nilErr.Error())
}

func TestCauseChain(t *testing.T) {
	inner := NewGeneric(PhaseRuntime, RUN002, errors.New("index out of range"))
	outer := &Report{
		Schema:  "graphix.error/v1",
		Code:    RUN001,
		Phase:   PhaseRuntime,
		Message: "arithmetic error",
		Cause:   inner,
	}
	require.Equal(t, RUN002, outer.Cause.Code)
}
