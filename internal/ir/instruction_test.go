package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := map[string]Kind{
		"summon":   KindSummon,
		"manifest": KindManifest,
		"bind":     KindBind,
		"context":  KindContext,
		"detect":   KindDetect,
		"enforce":  KindEnforce,
		"pause":    KindPause,
		"redirect": KindRedirect,
		"cmp":      KindCMP,
		"verify":   KindGeneric,
		"":         KindGeneric,
		"generic":  KindGeneric,
	}
	for category, want := range tests {
		assert.Equal(t, want, KindOf(category), category)
	}
}

func TestKindStringRoundTrip(t *testing.T) {
	for k := KindSummon; k < NumKinds; k++ {
		assert.Equal(t, k, KindOf(k.String()))
	}
	assert.Equal(t, "Kind(99)", Kind(99).String())
}

func TestNewInstructionDefaults(t *testing.T) {
	in, err := NewInstruction("pause", "", "", nil)
	require.NoError(t, err)

	assert.Equal(t, "pause", in.Category())
	assert.Equal(t, "pause", in.Command())
	assert.Equal(t, "", in.Target())
	assert.NotNil(t, in.Params())
	assert.Empty(t, in.Params())
	assert.Nil(t, in.Children())
	assert.Equal(t, KindPause, in.Kind())
}

func TestNewInstructionRequiresCategory(t *testing.T) {
	_, err := NewInstruction("", "x", "", nil)
	assert.Error(t, err)
	assert.Panics(t, func() { MustInstruction("", "x", "") })
}

func TestInstructionImmutable(t *testing.T) {
	params := []Value{String("a")}
	in := MustInstruction("cmp", "log_event", "log_event", params...)

	params[0] = String("mutated")
	got := in.Params()
	got[0] = String("also mutated")

	assert.Equal(t, String("a"), in.Param(0))
	assert.Equal(t, Null{}, in.Param(1))
	assert.Equal(t, Null{}, in.Param(-1))
	assert.Equal(t, 1, in.NumParams())
}

func TestInstructionToValue(t *testing.T) {
	in := MustInstruction("bind", "eternal", "eternal")
	data, err := in.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"command":"eternal","params":[],"target":"eternal","type":"bind"}`, string(data))

	generic := MustInstruction("verify", "sentience", "", Int(1))
	data, err = MarshalValue(Program{generic}.ToValue())
	require.NoError(t, err)
	assert.Equal(t, `[{"command":"sentience","params":[1],"type":"verify"}]`, string(data))
}
