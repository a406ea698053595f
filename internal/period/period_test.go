package period

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScaleNumbers(t *testing.T) {
	assert.Equal(t, float64(100), Scale(100, ThisMonth))
	assert.Equal(t, float64(150), Scale(1000, Last7Days))
	assert.Equal(t, float64(2530), Scale(100, AllTime))
	assert.Equal(t, float64(13), Scale(float32(1), ThisYear))
}

func TestScaleRecordScalesOnlyNumericFields(t *testing.T) {
	in := map[string]any{"a": 10, "b": "x"}
	out := Scale(in, ThisYear)
	assert.Equal(t, map[string]any{"a": float64(125), "b": "x"}, out)
	assert.Equal(t, 10, in["a"], "input record is not mutated")
}

func TestScaleRecordIsShallow(t *testing.T) {
	nested := map[string]any{"n": 10}
	out := Scale(map[string]any{"inner": nested}, ThisYear).(map[string]any)
	assert.Equal(t, nested, out["inner"])
}

func TestScalePassesThroughOtherTypes(t *testing.T) {
	assert.Equal(t, "12", Scale("12", ThisYear))
	assert.Nil(t, Scale(nil, ThisYear))
	assert.Equal(t, []int{1, 2}, Scale([]int{1, 2}, ThisYear))
	assert.Equal(t, true, Scale(true, ThisYear))
}

func TestScaleValueRoundsHalfUp(t *testing.T) {
	assert.Equal(t, float64(1), ScaleValue(0.5, ThisMonth))
	assert.Equal(t, float64(0), ScaleValue(-0.5, ThisMonth))
	assert.Equal(t, float64(2), ScaleValue(13, Last7Days))
}

func TestMultiplierTable(t *testing.T) {
	assert.Len(t, All(), 8)
	assert.Equal(t, 0.15, Multiplier(Last7Days))
	assert.Equal(t, 1.0, Multiplier(ThisMonth))
	assert.Equal(t, 25.3, Multiplier(AllTime))
	assert.Equal(t, 1.0, Multiplier(Period("fortnight")))
}

func TestParse(t *testing.T) {
	p, ok := Parse("thisyear")
	assert.True(t, ok)
	assert.Equal(t, ThisYear, p)
	_, ok = Parse("fortnight")
	assert.False(t, ok)
	assert.Equal(t, "periods.last7days", Last7Days.LabelKey())
}
