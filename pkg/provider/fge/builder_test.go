package fge

import (
	"strings"
	"testing"
)

func TestValidateAcceptsAllowedFilters(t *testing.T) {
	g := "[0:a][1:a]acrossfade=d=10.000:c1=tri:c2=tri[mix]"
	if err := Validate(g); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRejectsUnknownFilter(t *testing.T) {
	g := "[0:a]superfade=d=1[out]"
	if err := Validate(g); err == nil {
		t.Fatal("Validate should reject a filter outside the allowed vocabulary")
	}
}

func TestValidateRejectsOverLengthGraph(t *testing.T) {
	g := "[0:a]volume=1" + strings.Repeat("0", MaxGraphLength) + "[out]"
	if err := Validate(g); err == nil {
		t.Fatal("Validate should reject a graph over the length cap")
	}
}

func TestBuilderJoinsChainsWithSemicolons(t *testing.T) {
	b := NewBuilder().AddChain("[0:a]anull[a]").AddChain("[a]volume=1[out]")
	got := b.Build()
	want := "[0:a]anull[a];[a]volume=1[out]"
	if got != want {
		t.Errorf("Build() = %q, want %q", got, want)
	}
}

func TestBuildAndValidateRejectsBadFilterAfterAssembly(t *testing.T) {
	b := NewBuilder().AddChain("[0:a]notarealfilter=1[out]")
	if _, err := b.BuildAndValidate(); err == nil {
		t.Fatal("BuildAndValidate should surface a vocabulary violation")
	}
}
