package errors

import (
	"strings"
	"testing"
)

func TestValidateNonNegative(t *testing.T) {
	tests := []struct {
		name    string
		value   float64
		wantErr bool
	}{
		{name: "zero", value: 0, wantErr: false},
		{name: "positive", value: 12.5, wantErr: false},
		{name: "negative", value: -0.001, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNonNegative("tolerance", tt.value)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateNonNegative(%g) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
			if err != nil {
				if !Is(err, ErrCodeInvalidRange) {
					t.Errorf("code = %v, want %v", GetCode(err), ErrCodeInvalidRange)
				}
				if !strings.Contains(err.Error(), "tolerance") {
					t.Errorf("message %q should carry the parameter name", err.Error())
				}
			}
		})
	}
}

func TestValidateRange(t *testing.T) {
	tests := []struct {
		name    string
		value   float64
		wantErr bool
	}{
		{name: "at lower bound", value: 0, wantErr: false},
		{name: "at upper bound", value: 180, wantErr: false},
		{name: "inside", value: 45, wantErr: false},
		{name: "below", value: -1, wantErr: true},
		{name: "above", value: 181, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRange("turn_threshold_degree", tt.value, 0, 180)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRange(%g) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
		})
	}
}

func TestValidateChoice(t *testing.T) {
	valid := []string{"keep", "discard", "split"}

	if err := ValidateChoice("redundant_edges", "split", valid); err != nil {
		t.Errorf("valid choice rejected: %v", err)
	}

	err := ValidateChoice("redundant_edges", "merge", valid)
	if err == nil {
		t.Fatal("invalid choice accepted")
	}
	if !Is(err, ErrCodeInvalidPolicy) {
		t.Errorf("code = %v, want %v", GetCode(err), ErrCodeInvalidPolicy)
	}
	for _, want := range []string{"redundant_edges", "merge", "keep", "discard", "split"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("message %q should mention %q", err.Error(), want)
		}
	}
}

func TestValidateAttribute(t *testing.T) {
	attrs := map[string]float64{"length": 10, "walk_time": 12}

	tests := []struct {
		name    string
		attr    string
		wantErr bool
	}{
		{name: "present", attr: "length", wantErr: false},
		{name: "empty means unused", attr: "", wantErr: false},
		{name: "missing", attr: "drive_time", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAttribute("weight_attribute", tt.attr, attrs)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAttribute(%q) error = %v, wantErr %v", tt.attr, err, tt.wantErr)
			}
			if err != nil {
				if !Is(err, ErrCodeUnknownAttribute) {
					t.Errorf("code = %v, want %v", GetCode(err), ErrCodeUnknownAttribute)
				}
				// Available attributes are listed in sorted order.
				if !strings.Contains(err.Error(), "length, walk_time") {
					t.Errorf("message %q should list available attributes", err.Error())
				}
			}
		})
	}
}

func TestValidateLayerName(t *testing.T) {
	if err := ValidateLayerName("homes"); err != nil {
		t.Errorf("valid name rejected: %v", err)
	}
	if err := ValidateLayerName(""); err == nil {
		t.Error("empty name accepted")
	}
	if err := ValidateLayerName(strings.Repeat("x", 300)); err == nil {
		t.Error("oversized name accepted")
	}
}
