package outcome

import (
	"bytes"
	"math"
	"sync"
	"testing"

	"reelsim/internal/simerr"
)

func copies(n int, payout int64) *Table {
	t := NewTable(n)
	for i := 0; i < n; i++ {
		t.Append(Record{ID: uint64(i), Weight: 1, Payout: payout})
	}
	return t
}

func TestCopiesOfOnePayout(t *testing.T) {
	for _, p := range []int64{0, 150, 10000} {
		s, err := copies(250, p).Summarize(100)
		if err != nil {
			t.Fatalf("payout %d: %v", p, err)
		}
		if s.Mean != float64(p) || s.Variance != 0 || s.Median != p || s.Skewness != 0 || s.Kurtosis != 0 {
			t.Errorf("payout %d: %+v", p, s)
		}
		if s.Granularity != 0 || s.MaxWinHitRate != 1 {
			t.Errorf("payout %d: granularity %d, max hit rate %g", p, s.Granularity, s.MaxWinHitRate)
		}
		hr, err := copies(250, p).HitRate()
		if p > 0 && (err != nil || hr != 1) {
			t.Errorf("payout %d: hit rate %g, %v", p, hr, err)
		}
		if p == 0 && err != simerr.ErrNoWins {
			t.Errorf("hit rate on zero payouts: %v", err)
		}
	}
}

func TestEmptyTableFails(t *testing.T) {
	tbl := NewTable(0)
	if _, err := tbl.Summarize(100); !simerr.IsEmptyTable(err) {
		t.Errorf("Summarize: %v", err)
	}
	if _, err := tbl.Mean(); !simerr.IsEmptyTable(err) {
		t.Errorf("Mean: %v", err)
	}
	if _, err := tbl.Median(); !simerr.IsEmptyTable(err) {
		t.Errorf("Median: %v", err)
	}
	if _, err := tbl.HitRate(); !simerr.IsEmptyTable(err) {
		t.Errorf("HitRate: %v", err)
	}
	if _, err := tbl.RTP(100); !simerr.IsEmptyTable(err) {
		t.Errorf("RTP: %v", err)
	}
}

func TestWeightedStatistics(t *testing.T) {
	tbl := TableOf([]Record{
		{ID: 1, Weight: 6, Payout: 0},
		{ID: 2, Weight: 3, Payout: 50},
		{ID: 3, Weight: 1, Payout: 500},
	})
	s, err := tbl.Summarize(100)
	if err != nil {
		t.Fatal(err)
	}
	// mean = (150 + 500) / 10
	if s.Mean != 65 {
		t.Errorf("mean %g", s.Mean)
	}
	if s.RTP.String() != "0.65" {
		t.Errorf("rtp %s", s.RTP)
	}
	wantVar := 0.6*65*65 + 0.3*15*15 + 0.1*435*435
	if math.Abs(s.Variance-wantVar) > 1e-6 || math.Abs(s.StdDev-math.Sqrt(wantVar)) > 1e-6 {
		t.Errorf("variance %g, want %g", s.Variance, wantVar)
	}
	if s.Skewness <= 0 {
		t.Errorf("skewness %g should be positive", s.Skewness)
	}
	if s.Median != 0 || s.MaxWin != 500 || s.MaxWinHitRate != 10 {
		t.Errorf("median %d max %d max hit rate %g", s.Median, s.MaxWin, s.MaxWinHitRate)
	}
	if math.Abs(s.HitRate-2.5) > 1e-12 || s.PNoWin != 0.6 || s.PBelowStake != 0.9 {
		t.Errorf("hit rate %g p0 %g below %g", s.HitRate, s.PNoWin, s.PBelowStake)
	}
	if s.Granularity != 50 {
		t.Errorf("granularity %d", s.Granularity)
	}
}

func TestSortedIsStable(t *testing.T) {
	tbl := TableOf([]Record{
		{ID: 1, Weight: 1, Payout: 30},
		{ID: 2, Weight: 1, Payout: 10},
		{ID: 3, Weight: 1, Payout: 30},
		{ID: 4, Weight: 1, Payout: 10},
	})
	var ids []uint64
	for _, r := range tbl.Sorted() {
		ids = append(ids, r.ID)
	}
	if want := []uint64{2, 4, 1, 3}; !equalIDs(ids, want) {
		t.Fatalf("sorted ids %v, want %v", ids, want)
	}
	tbl.Append(Record{ID: 5, Weight: 1, Payout: 0})
	if first := tbl.Sorted()[0]; first.ID != 5 {
		t.Fatalf("sort not refreshed after append: %+v", first)
	}
	if tbl.Records()[0].ID != 1 {
		t.Fatal("insertion order lost")
	}
}

func TestConcurrentAppend(t *testing.T) {
	tbl := NewTable(0)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			batch := make([]Record, 100)
			for i := range batch {
				batch[i] = Record{ID: uint64(w*100 + i), Weight: 2, Payout: 1}
			}
			tbl.Append(batch...)
		}(w)
	}
	wg.Wait()
	if tbl.Len() != 800 || tbl.TotalWeight() != 1600 {
		t.Fatalf("len %d weight %d", tbl.Len(), tbl.TotalWeight())
	}
}

func TestSearch(t *testing.T) {
	tbl := TableOf([]Record{
		{ID: 1, Weight: 1, Payout: 0},
		{ID: 2, Weight: 1, Payout: 100},
		{ID: 3, Weight: 1, Payout: 250},
		{ID: 4, Weight: 1, Payout: 500},
	})
	cases := []struct {
		q    Query
		want []uint64
	}{
		{Query{Method: SearchRange, Min: 100, Max: 500}, []uint64{2, 3}},
		{Query{Method: SearchMin, Min: 250}, []uint64{3, 4}},
		{Query{Method: "max", Max: 100}, []uint64{1, 2}},
		{Query{Method: SearchMin, Min: 0, Limit: 3}, []uint64{1, 2, 3}},
		{Query{Method: SearchMin, Min: 9999}, []uint64{}},
	}
	for _, c := range cases {
		got, err := tbl.Search(c.q)
		if err != nil {
			t.Fatalf("%+v: %v", c.q, err)
		}
		if !equalIDs(got, c.want) {
			t.Errorf("%+v: got %v, want %v", c.q, got, c.want)
		}
	}

	for _, q := range []Query{
		{Method: SearchRange, Min: 5, Max: 5},
		{Method: "BETWEEN"},
		{Method: SearchMin, Limit: -1},
	} {
		if _, err := tbl.Search(q); !simerr.IsInvalidQuery(err) {
			t.Errorf("%+v: got %v", q, err)
		}
	}
}

func TestCSVRoundTrip(t *testing.T) {
	tbl := TableOf([]Record{
		{ID: 0, Weight: 17, Payout: 0},
		{ID: 1, Weight: 3, Payout: 1250},
	})
	var buf bytes.Buffer
	if err := tbl.WriteCSV(&buf); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "0,17,0\n1,3,1250\n" {
		t.Fatalf("csv %q", buf.String())
	}
	back, err := ReadCSV(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if back.Len() != 2 || back.TotalWeight() != 20 || back.Records()[1].Payout != 1250 {
		t.Fatalf("read back %+v", back.Records())
	}
	if _, err := ReadCSV(bytes.NewBufferString("1,x,2\n")); err == nil {
		t.Fatal("malformed row accepted")
	}
}

func TestReweight(t *testing.T) {
	tbl := TableOf([]Record{
		{ID: 1, Payout: 0, Criterion: "0"},
		{ID: 2, Payout: 0, Criterion: "0"},
		{ID: 3, Payout: 300, Criterion: "win"},
	})
	rw := tbl.Reweight(map[string]float64{"0": 0.5, "win": 0.5})
	recs := rw.Records()
	if recs[0].Weight != WeightScale/4 || recs[2].Weight != WeightScale/2 {
		t.Fatalf("weights %d %d", recs[0].Weight, recs[2].Weight)
	}
	mean, err := rw.Mean()
	if err != nil {
		t.Fatal(err)
	}
	if mean != 150 {
		t.Fatalf("mean %g", mean)
	}
	if tbl.TotalWeight() != 0 {
		t.Fatal("Reweight mutated the source table")
	}
}

func equalIDs(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
