package safeconv_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/chartfang/pkg/safeconv"
)

func TestClampToInt64(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   uint64
		want int64
	}{
		{name: "zero", in: 0, want: 0},
		{name: "play count", in: 1203, want: 1203},
		{name: "max int64", in: math.MaxInt64, want: math.MaxInt64},
		{name: "saturates", in: math.MaxUint64, want: math.MaxInt64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, safeconv.ClampToInt64(tt.in))
		})
	}
}
