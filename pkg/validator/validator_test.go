package validator

import (
	"testing"

	"github.com/go-playground/validator/v10"
)

type sample struct {
	QType  string `validate:"question_type"`
	Status string `validate:"omitempty,question_status"`
	Review string `validate:"omitempty,review_status"`
}

func TestRegisterOn(t *testing.T) {
	v := validator.New()
	if err := RegisterOn(v); err != nil {
		t.Fatalf("RegisterOn 失败: %v", err)
	}

	tests := []struct {
		name    string
		in      sample
		wantErr bool
	}{
		{"合法", sample{QType: "single", Status: "archived", Review: "published"}, false},
		{"未知题型", sample{QType: "fill"}, true},
		{"未知状态", sample{QType: "judge", Status: "deleted"}, true},
		{"审核不允许归档", sample{QType: "essay", Review: "archived"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.in)
			if (err != nil) != tt.wantErr {
				t.Errorf("wantErr=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRegister_GinEngine(t *testing.T) {
	if err := Register(); err != nil {
		t.Fatalf("Register 失败: %v", err)
	}
}
