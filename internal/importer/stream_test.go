package importer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStream_DeliversAllRows(t *testing.T) {
	p := &BTParser{}
	ch := p.ParseStream(context.Background(), strings.NewReader(loadStatement(t)), 2)

	var ids []string
	for res := range ch {
		require.NoError(t, res.Err)
		ids = append(ids, res.Transaction.ExternalID)
	}
	assert.Len(t, ids, 7)
	assert.Equal(t, "2025011501", ids[0])
	assert.Equal(t, "2025012001", ids[6])
}

func TestParseStream_TerminalError(t *testing.T) {
	rows := "REF1,Cumparare POS,20.00,,2025-01-15\n" +
		"REF2,Cumparare POS,BAD,,2025-01-16\n"
	p := &BTParser{}
	ch := p.ParseStream(context.Background(), strings.NewReader(statementWith(rows)), 0)

	first, ok := <-ch
	require.True(t, ok)
	require.NoError(t, first.Err)
	assert.Equal(t, "REF1", first.Transaction.ExternalID)

	second, ok := <-ch
	require.True(t, ok)
	require.Error(t, second.Err)
	assert.Contains(t, second.Err.Error(), "row 2")

	_, ok = <-ch
	assert.False(t, ok, "channel should close after the terminal error")
}

func TestParseStream_CancelStopsProducer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	p := &BTParser{}
	// Unbuffered channel: the producer blocks on the first row until we
	// either read or cancel.
	ch := p.ParseStream(ctx, strings.NewReader(loadStatement(t)), 0)
	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("stream did not close after cancellation")
		}
	}
}
