package suggest_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/modelfinder/pkg/suggest"
)

func TestMatcher_Distance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"Post", "Post", 0},
		{"héllo", "hello", 1},
	}

	var m suggest.Matcher

	for _, tt := range tests {
		assert.Equal(t, tt.want, m.Distance(tt.a, tt.b), "%q vs %q", tt.a, tt.b)
		assert.Equal(t, tt.want, m.Distance(tt.b, tt.a), "%q vs %q", tt.b, tt.a)
	}
}

func TestClosest(t *testing.T) {
	t.Parallel()

	models := []string{`App\Models\Post`, `App\Models\User`, `App\Models\Comment`}

	got, ok := suggest.Closest(`App\Models\Usr`, models)
	assert.True(t, ok)
	assert.Equal(t, `App\Models\User`, got)

	got, ok = suggest.Closest(`app\models\comments`, models)
	assert.True(t, ok)
	assert.Equal(t, `App\Models\Comment`, got)

	_, ok = suggest.Closest(`Vendor\Billing\Invoice`, models)
	assert.False(t, ok)

	_, ok = suggest.Closest("Anything", nil)
	assert.False(t, ok)
}
