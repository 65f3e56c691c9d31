package codes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Sizes(t *testing.T) {
	tbl := Default()
	assert.Len(t, tbl.BodyComposition, 4)
	assert.Len(t, tbl.Tissues, 8)
	assert.Len(t, tbl.Structures, 104)

	code, ok := tbl.BodyComposition.Code("pericardium")
	require.True(t, ok)
	assert.Equal(t, "76848001", code)

	code, ok = tbl.Tissues.Code("vat")
	require.True(t, ok)
	assert.Equal(t, "RID50365", code)

	_, ok = tbl.Structures.Code("nope")
	assert.False(t, ok)
}

func TestDefault_KeysAreUnique(t *testing.T) {
	for name, ns := range map[string]Namespace{
		"bca":        Default().BodyComposition,
		"tissues":    Default().Tissues,
		"structures": Default().Structures,
	} {
		seen := map[string]bool{}
		for _, k := range ns.Keys() {
			assert.False(t, seen[k], "%s: duplicate %s", name, k)
			seen[k] = true
		}
	}
}

func TestCandidates_NoLaterality(t *testing.T) {
	assert.Equal(t, []string{"inferior_vena_cava"}, Candidates("inferior-vena-cava"))
	assert.Equal(t, []string{"vertebrae_L5"}, Candidates("vertebra-L5"))
	assert.Equal(t, []string{"myocardium"}, Candidates("myocardium"))
}

func TestCandidates_ProbeOrder(t *testing.T) {
	assert.Equal(t, []string{
		"left_gluteus_maximus",
		"gluteus_left_maximus",
		"gluteus_maximus_left",
	}, Candidates("gluteus-maximus-left"))

	assert.Equal(t, []string{
		"right_kidney",
		"kidney_right",
	}, Candidates("right-kidney"))

	assert.Equal(t, []string{
		"left_rib_1",
		"rib_left_1",
		"rib_1_left",
	}, Candidates("rib-left-1"))
}

func TestLaterality_LeftWins(t *testing.T) {
	assert.Equal(t, "left", Laterality("left-right"))
	assert.Equal(t, "right", Laterality("hip-right"))
	assert.Empty(t, Laterality("spleen"))
}

func TestResolveName_FirstMatchWins(t *testing.T) {
	has := func(s string) bool { return s == "gluteus_left_maximus" || s == "gluteus_maximus_left" }
	name, ok := ResolveName("gluteus-maximus-left", has)
	require.True(t, ok)
	assert.Equal(t, "gluteus_left_maximus", name)

	_, ok = ResolveName("spleen", has)
	assert.False(t, ok)
}

type seg struct {
	VolumeML float64
	Present  bool
}

func TestNameMapping_Resolves(t *testing.T) {
	records := map[string]seg{
		"gluteus_maximus_left": {5.0, true},
		"kidney_right":         {150, true},
		"vertebrae_L5":         {40, true},
		"heart_myocardium":     {120, true},
		"heart_left_atrium":    {30, false},
		"rib_left_1":           {2, true},
		"unrelated":            {1, true},
	}
	got := NameMapping(Default().Structures.Keys(), records)

	assert.Equal(t, seg{5.0, true}, got["gluteus-maximus-left"])
	assert.Equal(t, seg{150, true}, got["right-kidney"])
	assert.Equal(t, seg{40, true}, got["vertebra-L5"])
	assert.Equal(t, seg{120, true}, got["myocardium"])
	assert.Equal(t, seg{30, false}, got["heart-left-atrium"])
	assert.Equal(t, seg{2, true}, got["rib-left-1"])
	assert.Len(t, got, 6)
}

func TestNameMapping_OmitsUnresolved(t *testing.T) {
	got := NameMapping([]string{"spleen", "liver", "femur-left"}, map[string]seg{"liver": {1, true}})
	assert.Len(t, got, 1)
	_, ok := got["spleen"]
	assert.False(t, ok)
	_, ok = got["femur-left"]
	assert.False(t, ok)
}

// every structure in the table must resolve when BOA uses any of its probed spellings
func TestNameMapping_AnyCandidateResolves(t *testing.T) {
	for _, key := range Default().Structures.Keys() {
		for _, c := range Candidates(key) {
			got := NameMapping([]string{key}, map[string]int{c: 1})
			assert.Equal(t, 1, got[Rename(key)], "%s via %s", key, c)
		}
	}
}

func TestNameMapping_CanonicalSpellingWins(t *testing.T) {
	records := map[string]int{"heart_myocardium": 1, "myocardium": 2}
	for range 200 {
		got := NameMapping([]string{"myocardium"}, records)
		require.Equal(t, map[string]int{"myocardium": 2}, got)
	}
}
