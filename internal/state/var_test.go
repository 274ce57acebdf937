package state_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"storefront/internal/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVar_ObserveSeesCurrentThenLatest(t *testing.T) {
	v := state.NewVar(state.State[int]{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := v.Observe(ctx)
	first := <-ch
	assert.Equal(t, state.KindUninitialized, first.Kind)

	v.Set(state.Loading[int]())
	v.Set(state.Success(3))

	deadline := time.After(2 * time.Second)
	for {
		select {
		case st := <-ch:
			if st.IsSuccess() {
				assert.Equal(t, 3, st.Data)
				return
			}
		case <-deadline:
			t.Fatal("latest value never observed")
		}
	}
}

func TestVar_Until(t *testing.T) {
	v := state.NewVar(false)
	go func() {
		time.Sleep(10 * time.Millisecond)
		v.Set(true)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	got, err := v.Until(ctx, func(b bool) bool { return b })
	require.NoError(t, err)
	assert.True(t, got)
	assert.True(t, v.Get())
}

func TestVar_ObserveStopsOnCancel(t *testing.T) {
	v := state.NewVar(1)
	ctx, cancel := context.WithCancel(context.Background())
	ch := v.Observe(ctx)
	<-ch
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			// a value raced with cancel; the channel must still close
			_, ok = <-ch
		}
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("observer did not stop")
	}
}

func TestStateJSONShape(t *testing.T) {
	assert.Equal(t, "success", state.KindSuccess.String())
	text, err := state.KindError.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "error", string(text))
	assert.Equal(t, "Error(Product not found)", state.Error[int]("Product not found").String())

	tests := []struct {
		name string
		got  func() ([]byte, error)
		want string
	}{
		{"empty list", func() ([]byte, error) { return json.Marshal(state.Success([]string{})) }, `{"status":"success","data":[]}`},
		{"nil list", func() ([]byte, error) { return json.Marshal(state.Success([]string(nil))) }, `{"status":"success","data":[]}`},
		{"zero int", func() ([]byte, error) { return json.Marshal(state.Success(0)) }, `{"status":"success","data":0}`},
		{"false", func() ([]byte, error) { return json.Marshal(state.Success(false)) }, `{"status":"success","data":false}`},
		{"loading", func() ([]byte, error) { return json.Marshal(state.Loading[[]string]()) }, `{"status":"loading"}`},
		{"error", func() ([]byte, error) { return json.Marshal(state.Error[int]("Product not found")) }, `{"status":"error","message":"Product not found"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := tt.got()
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(raw))
		})
	}
}
