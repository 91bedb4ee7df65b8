// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export_test

import (
	"fmt"

	"github.com/jeranaias/parley/internal/export"
	"github.com/jeranaias/parley/internal/model"
)

// ExampleRender_text demonstrates the human-readable export.
func ExampleRender_text() {
	msgs := []model.Message{
		model.NewUserMessage("hello"),
		model.NewAssistantMessage("hi there", []string{"doc1", "doc2"}),
	}

	data, err := export.Render(msgs, export.FormatText, export.DefaultOptions())
	if err != nil {
		fmt.Printf("Export failed: %v\n", err)
		return
	}

	fmt.Print(string(data))
	// Output:
	// You: hello
	//
	// Assistant: hi there
	// Sources: doc1, doc2
}

// ExampleParse demonstrates reading a JSON export back.
func ExampleParse() {
	msgs := []model.Message{
		model.NewUserMessage("hello"),
		model.NewAssistantMessage("hi there", []string{"doc1"}),
	}

	data, _ := export.Render(msgs, export.FormatJSON, nil)
	back, err := export.Parse(data)
	if err != nil {
		fmt.Printf("Parse failed: %v\n", err)
		return
	}

	for _, m := range back {
		fmt.Println(m.Author, m.Text, m.Sources)
	}
	// Output:
	// user hello []
	// assistant hi there [doc1]
}
