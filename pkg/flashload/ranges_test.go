package flashload

import "testing"

func TestCoalesceRanges(t *testing.T) {
	cases := []struct {
		name string
		in   []uint32
		want [][2]uint32
	}{
		{
			name: "mixed gaps and runs",
			in:   []uint32{0, 1, 3, 5, 6, 7},
			want: [][2]uint32{{0, 1}, {3, 3}, {5, 7}},
		},
		{
			name: "short runs with singletons",
			in:   []uint32{3, 4, 7, 9, 11, 12},
			want: [][2]uint32{{3, 4}, {7, 7}, {9, 9}, {11, 12}},
		},
		{
			name: "all singletons",
			in:   []uint32{1, 3, 5, 7},
			want: [][2]uint32{{1, 1}, {3, 3}, {5, 5}, {7, 7}},
		},
		{
			name: "empty",
			in:   nil,
			want: nil,
		},
		{
			name: "single address",
			in:   []uint32{42},
			want: [][2]uint32{{42, 42}},
		},
		{
			name: "one contiguous run",
			in:   []uint32{10, 11, 12, 13},
			want: [][2]uint32{{10, 13}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CoalesceRanges(tc.in)
			if len(got) != len(tc.want) {
				t.Fatalf("CoalesceRanges(%v) = %v, want %v", tc.in, got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("CoalesceRanges(%v) = %v, want %v", tc.in, got, tc.want)
				}
			}
		})
	}
}
