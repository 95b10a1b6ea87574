package overlay

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// placed runs Place and returns the frame split into lines.
func placed(cfg Config, fg, bg string) []string {
	return strings.Split(Place(cfg, fg, bg), "\n")
}

func dots(width, height int) string {
	line := strings.Repeat(".", width)
	rows := make([]string, height)
	for i := range rows {
		rows[i] = line
	}
	return strings.Join(rows, "\n")
}

func TestPlace_CenterCoversMiddleRows(t *testing.T) {
	lines := placed(Config{Width: 5, Height: 3, Position: Center}, "XX\nXX", "AAAAA\nAAAAA\nAAAAA")

	require.Len(t, lines, 3)
	require.Contains(t, lines[0], "XX")
	require.Contains(t, lines[1], "XX")
	require.Equal(t, "AAAAA", lines[2])
}

func TestPlace_OversizedForegroundPinsTopLeft(t *testing.T) {
	lines := placed(Config{Width: 3, Height: 3, Position: Center}, "XXXXX\nXXXXX", "AAA\nAAA\nAAA")

	require.Len(t, lines, 3)
	require.True(t, strings.HasPrefix(lines[0], "XXXXX"))
}

func TestPlace_TopAndBottomRespectPadY(t *testing.T) {
	bg := dots(5, 5)

	lines := placed(Config{Width: 5, Height: 5, Position: Top}, "XX", bg)
	require.Contains(t, lines[0], "XX")
	require.Equal(t, ".....", lines[4])

	lines = placed(Config{Width: 5, Height: 5, Position: Top, PadY: 1}, "XX", bg)
	require.Equal(t, ".....", lines[0])
	require.Contains(t, lines[1], "XX")

	lines = placed(Config{Width: 5, Height: 5, Position: Bottom}, "XX", bg)
	require.Contains(t, lines[4], "XX")
	require.Equal(t, ".....", lines[0])

	lines = placed(Config{Width: 5, Height: 5, Position: Bottom, PadY: 1}, "XX", bg)
	require.Equal(t, ".....", lines[4])
	require.Contains(t, lines[3], "XX")
}

func TestPlace_EmptyBackgroundPadsToHeight(t *testing.T) {
	lines := placed(Config{Width: 5, Height: 3, Position: Center}, "XX\nXX", "")

	require.Len(t, lines, 3)
}

func TestPlace_KeepsBackgroundAroundForeground(t *testing.T) {
	lines := placed(Config{Width: 5, Height: 3, Position: Center}, "X", "ABCDE\nFGHIJ\nKLMNO")

	require.Equal(t, "FGXIJ", lines[1])
}

func TestPlace_KeepsANSIStyling(t *testing.T) {
	bg := "\x1b[31mRED\x1b[0m\n\x1b[31mRED\x1b[0m\n\x1b[31mRED\x1b[0m"

	result := Place(Config{Width: 3, Height: 3, Position: Center}, "X", bg)

	require.Contains(t, result, "\x1b[31m")
}

func TestCalculatePosition(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		fgW, fgH int
		x, y     int
	}{
		{"center", Config{Width: 10, Height: 10, Position: Center}, 4, 2, 3, 4},
		{"top with pad", Config{Width: 10, Height: 10, Position: Top, PadY: 2}, 4, 2, 3, 2},
		{"bottom with pad", Config{Width: 10, Height: 10, Position: Bottom, PadY: 1}, 4, 2, 3, 7},
		{"oversized clamps to origin", Config{Width: 5, Height: 5, Position: Center}, 10, 10, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := calculatePosition(tt.cfg, tt.fgW, tt.fgH)
			require.Equal(t, tt.x, x)
			require.Equal(t, tt.y, y)
		})
	}
}

// A full centered frame, pinned exactly so positioning regressions show
// up as a concrete diff.
func TestPlace_Center_FullFrame(t *testing.T) {
	fg := "┌──────┐\n│ HELP │\n└──────┘"

	lines := placed(Config{Width: 20, Height: 10, Position: Center}, fg, dots(20, 10))

	require.Len(t, lines, 10)
	require.Equal(t, strings.Repeat(".", 20), lines[2])
	require.Equal(t, "......┌──────┐......", lines[3])
	require.Equal(t, "......│ HELP │......", lines[4])
	require.Equal(t, "......└──────┘......", lines[5])
	require.Equal(t, strings.Repeat(".", 20), lines[6])
}

func TestPlace_Top_FullFrame(t *testing.T) {
	lines := placed(Config{Width: 20, Height: 10, Position: Top, PadY: 1}, "[ STATUS BAR ]", dots(20, 10))

	require.Equal(t, strings.Repeat(".", 20), lines[0])
	require.Equal(t, "...[ STATUS BAR ]...", lines[1])
	require.Equal(t, strings.Repeat(".", 20), lines[2])
}

func TestPlace_Bottom_FullFrame(t *testing.T) {
	lines := placed(Config{Width: 20, Height: 10, Position: Bottom, PadY: 1}, "[ FOOTER ]", dots(20, 10))

	require.Equal(t, ".....[ FOOTER ].....", lines[8])
	require.Equal(t, strings.Repeat(".", 20), lines[9])
}
