package interp

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestReducePipe(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		l, r Status
		want Status
	}{
		{
			name: "both zero",
			l:    Status{Code: 0, Checked: true},
			r:    Status{Code: 0, Checked: true},
			want: Status{Code: 0, Checked: true},
		},
		{
			name: "right checked non-zero wins over left success",
			l:    Status{Code: 0, Checked: true},
			r:    Status{Code: 1, Checked: true},
			want: Status{Code: 1, Checked: true},
		},
		{
			name: "pipefail: left checked non-zero wins when right is zero",
			l:    Status{Code: 1, Checked: true},
			r:    Status{Code: 0, Checked: true},
			want: Status{Code: 1, Checked: true},
		},
		{
			name: "unchecked left non-zero does not mask right's success",
			l:    Status{Code: 1, Checked: false},
			r:    Status{Code: 0, Checked: true},
			want: Status{Code: 0, Checked: true},
		},
		{
			name: "unchecked right non-zero does not resurface as an error",
			l:    Status{Code: 0, Checked: true},
			r:    Status{Code: 1, Checked: false},
			want: Status{Code: 1, Checked: false},
		},
		{
			name: "both non-zero: rightmost checked status wins",
			l:    Status{Code: 2, Checked: true},
			r:    Status{Code: 3, Checked: true},
			want: Status{Code: 3, Checked: true},
		},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			got := reducePipe(test.l, test.r)
			qt.Assert(t, got, qt.Equals, test.want)
		})
	}
}

func TestApplyUnchecked(t *testing.T) {
	t.Parallel()
	got := applyUnchecked(Status{Code: 7, Checked: true})
	qt.Assert(t, got, qt.Equals, Status{Code: 7, Checked: false})
}

func TestStatusSuccess(t *testing.T) {
	t.Parallel()
	qt.Assert(t, Status{Code: 1, Checked: false}.Success(), qt.Equals, true)
	qt.Assert(t, Status{Code: 0, Checked: true}.Success(), qt.Equals, true)
	qt.Assert(t, Status{Code: 1, Checked: true}.Success(), qt.Equals, false)
}
