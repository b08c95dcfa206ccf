package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildCharsetExplicit(t *testing.T) {
	require.Equal(t, []byte("xyz"), buildCharset("xyz", true, true, true, true, true))
}

func TestBuildCharsetDefaultsToLetters(t *testing.T) {
	got := buildCharset("", false, false, false, false, false)
	require.Len(t, got, 52)
	require.Contains(t, string(got), "a")
	require.Contains(t, string(got), "Z")
}

func TestBuildCharsetUpperOnly(t *testing.T) {
	got := buildCharset("", false, true, false, false, false)
	require.Len(t, got, 26)
	require.Contains(t, string(got), "Z")
	require.NotContains(t, string(got), "a")
}

func TestBuildCharsetLowerOnly(t *testing.T) {
	got := buildCharset("", true, false, false, false, false)
	require.Len(t, got, 26)
	require.Contains(t, string(got), "a")
	require.NotContains(t, string(got), "A")
}

func TestBuildCharsetCombinesSelectedPresets(t *testing.T) {
	got := buildCharset("", false, false, true, true, false)
	require.Contains(t, string(got), "0123456789")
	require.Contains(t, string(got), "!")
	require.NotContains(t, string(got), "a")
}
