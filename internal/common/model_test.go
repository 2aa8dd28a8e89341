package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModelID(t *testing.T) {
	tests := []struct {
		in   string
		want ModelID
	}{
		{"rf", RandomForest},
		{"RF", RandomForest},
		{" dt ", DecisionTree},
		{"Lr", LogisticRegression},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseModelID(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseModelID_Unknown(t *testing.T) {
	for _, in := range []string{"", "svm", "rfx", "logistic"} {
		_, err := ParseModelID(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestModelID_Valid(t *testing.T) {
	for _, id := range ModelIDs {
		assert.True(t, id.Valid())
	}
	assert.False(t, ModelID("rf").Valid())
	assert.False(t, ModelID("XG").Valid())
	assert.Equal(t, "LogisticRegression", LogisticRegression.DisplayName())
}
