package slack

// Block is one element of the platform's rich message layout. Blocks are
// serialized as-is into the chat API request.
type Block map[string]any

// HeaderBlock renders a plain-text header.
func HeaderBlock(text string) Block {
	return Block{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": text,
		},
	}
}

// SectionBlock renders a markdown section.
func SectionBlock(text string) Block {
	return Block{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": text,
		},
	}
}

// FieldsBlock renders a two-column field layout from label/value pairs.
func FieldsBlock(fields map[string]string, order []string) Block {
	items := make([]map[string]any, 0, len(order))
	for _, label := range order {
		items = append(items, map[string]any{
			"type": "mrkdwn",
			"text": "*" + label + ":*\n" + fields[label],
		})
	}
	return Block{
		"type":   "section",
		"fields": items,
	}
}

// ContextBlock renders a muted footer line.
func ContextBlock(text string) Block {
	return Block{
		"type": "context",
		"elements": []map[string]any{
			{
				"type": "mrkdwn",
				"text": text,
			},
		},
	}
}

// DividerBlock renders a horizontal divider.
func DividerBlock() Block {
	return Block{"type": "divider"}
}
