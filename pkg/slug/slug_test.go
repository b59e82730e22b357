package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMake(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "Cathedral of the Sea", want: "cathedral-of-the-sea"},
		{in: "  Open -- Source  ", want: "open-source"},
		{in: "Crème Brûlée", want: "creme-brulee"},
		{in: "e-book_reader", want: "e-book-reader"},
		{in: "Sci-Fi & Fantasy!", want: "sci-fi-fantasy"},
		{in: "1984", want: "1984"},
		{in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Make(tt.in))
		})
	}
}
