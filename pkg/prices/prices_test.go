package prices

import (
	"context"
	"os"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stellarcompass/compass/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestPrice_Defaults(t *testing.T) {
	o := New(nil) // no cache, static table only

	if got := o.Price(context.Background(), "XLM"); !got.Equal(decimal.RequireFromString("0.12")) {
		t.Errorf("Price(XLM) = %s; want 0.12", got)
	}
	if got := o.Price(context.Background(), "USDC"); !got.Equal(decimal.NewFromInt(1)) {
		t.Errorf("Price(USDC) = %s; want 1", got)
	}
}

func TestPrice_UnknownAssetIsZero(t *testing.T) {
	o := New(nil)
	if got := o.Price(context.Background(), "DOGE"); !got.IsZero() {
		t.Errorf("Price(DOGE) = %s; want 0", got)
	}
}

func TestKnown_CoversStableAndNative(t *testing.T) {
	known := Known()
	want := map[string]bool{"XLM": false, "USDC": false}
	for _, code := range known {
		if _, ok := want[code]; ok {
			want[code] = true
		}
	}
	for code, seen := range want {
		if !seen {
			t.Errorf("Known() missing %s", code)
		}
	}
}
