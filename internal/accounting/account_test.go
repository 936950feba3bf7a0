package accounting

import (
	"bufio"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccount_OpenCloseRealizesPnL(t *testing.T) {
	a := New(1000.0, nil)
	assert.False(t, a.HasOpenPosition())

	a.OpenLong("BTCUSDT", 2, 100.0, 1)
	require.True(t, a.HasOpenPosition())

	a.ClosePosition(110.0, 2, ExitTakeProfit)
	assert.False(t, a.HasOpenPosition())
	assert.Equal(t, 20.0, a.RealizedPnL())

	trades := a.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, ExitTakeProfit, trades[0].ExitReason)
}

func TestAccount_OpenLongWhileOpenIsNoop(t *testing.T) {
	a := New(0, nil)
	a.OpenLong("X", 1, 10.0, 1)
	a.OpenLong("X", 5, 999.0, 2)

	pos := a.PositionState()
	assert.Equal(t, 1, pos.Qty)
	assert.Equal(t, 10.0, pos.EntryPq)
}

func TestAccount_ClosePositionWithNoneOpenIsNoop(t *testing.T) {
	a := New(0, nil)
	assert.NotPanics(t, func() { a.ClosePosition(100.0, 1, ExitThreshold) })
	assert.Empty(t, a.Trades())
}

func TestAccount_UnrealizedPnLTracksOpenPosition(t *testing.T) {
	a := New(0, nil)
	assert.Equal(t, 0.0, a.UnrealizedPnL(123.0))

	a.OpenLong("X", 3, 100.0, 1)
	assert.Equal(t, 30.0, a.UnrealizedPnL(110.0))
	assert.Equal(t, -30.0, a.UnrealizedPnL(90.0))
}

func TestAccount_MaxDrawdownTracksPeakToTrough(t *testing.T) {
	a := New(100.0, nil)
	a.UpdateEquity(100.0)
	assert.Equal(t, 0.0, a.MaxDrawdown())

	a.OpenLong("X", 1, 100.0, 1)
	a.UpdateEquity(150.0)
	assert.Equal(t, 0.0, a.MaxDrawdown())

	a.UpdateEquity(120.0)
	assert.Equal(t, 30.0, a.MaxDrawdown())

	a.UpdateEquity(110.0)
	assert.Equal(t, 40.0, a.MaxDrawdown())
}

func TestAccount_DumpTradesCSVWritesHeaderAndRows(t *testing.T) {
	a := New(0, nil)
	a.OpenLong("BTCUSDT", 1, 100.0, 1)
	a.ClosePosition(105.0, 2, ExitThreshold)

	path := filepath.Join(t.TempDir(), "trades.csv")
	a.DumpTradesCSV(path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "symbol")
	assert.Contains(t, lines[1], "BTCUSDT")
}
