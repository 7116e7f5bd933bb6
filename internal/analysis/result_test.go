package analysis

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeadlinePolicy(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "emotional state first", raw: `{"emotional_state":"calm","summary":"s","health_summary":"h"}`, want: "calm"},
		{name: "summary second", raw: `{"emotional_state":"  ","summary":"talked about lunch"}`, want: "talked about lunch"},
		{name: "health summary third", raw: `{"health_summary":"stable"}`, want: "stable"},
		{name: "default", raw: `{"depression_score":12}`, want: DefaultHeadline},
		{name: "wrong types ignored", raw: `{"emotional_state":5,"summary":"ok"}`, want: "ok"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			r, err := Decode([]byte(tt.raw))
			require.NoError(t, err)
			require.Equal(t, tt.want, r.Headline())
		})
	}
}

func TestDecodeFields(t *testing.T) {
	r, err := Decode([]byte(`{"confidence":0.5,"anxiety_score":30,"key_concerns":["sleep"],"speaker_separation_applied":true}`))
	require.NoError(t, err)
	require.Equal(t, SchemaVersion, r.SchemaVersion)
	require.Equal(t, "0.5", r.ConfidenceString())
	require.NotNil(t, r.AnxietyScore)
	require.Equal(t, 30.0, *r.AnxietyScore)
	require.Equal(t, []string{"sleep"}, r.KeyConcerns)
	require.True(t, r.SpeakerSeparationApplied)

	empty, err := Decode([]byte(`{}`))
	require.NoError(t, err)
	require.Equal(t, "", empty.ConfidenceString())
}

func TestDecodeRejectsNonObjects(t *testing.T) {
	for _, raw := range []string{`[]`, `null`, `"x"`, `{`} {
		_, err := Decode([]byte(raw))
		require.ErrorIs(t, err, ErrInvalidResult, raw)
	}
}
