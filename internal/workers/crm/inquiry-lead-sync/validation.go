package inquiryleadsync

import "inquiry-sync-workers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"serviceArea", "inquiryId"},
		Properties: map[string]validation.Property{
			"serviceArea": {
				Type:        "string",
				Description: "Service area the inquiry belongs to",
				MinLength:   validation.IntPtr(1),
				MaxLength:   validation.IntPtr(100),
			},
			"inquiryId": {
				Type:        "string",
				Description: "Inquiry identifier within the service area",
				MinLength:   validation.IntPtr(1),
				MaxLength:   validation.IntPtr(255),
			},
		},
		AdditionalProperties: validation.BoolPtr(true),
	}
}
