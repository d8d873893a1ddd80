package models

import (
	"strings"
	"testing"

	"github.com/gin-gonic/gin/binding"
)

func TestChatRequestAcceptsLongQuestion(t *testing.T) {
	req := ChatRequest{
		Nickname: "acme-shop",
		Question: strings.Repeat("why is the sky blue? ", 500),
	}

	// Long questions pass validation; they are truncated downstream.
	if err := binding.Validator.ValidateStruct(&req); err != nil {
		t.Fatalf("long question rejected: %v", err)
	}
}

func TestChatRequestRejectsMissingFields(t *testing.T) {
	cases := []ChatRequest{
		{Nickname: "acme-shop"},                 // no question
		{Question: "hi"},                        // no nickname
		{Nickname: "ab", Question: "hi"},        // nickname too short
		{Nickname: strings.Repeat("a", 51), Question: "hi"}, // nickname too long
	}

	for i, req := range cases {
		if err := binding.Validator.ValidateStruct(&req); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}
