// internal/service/template_service.go
package service

import (
	"strings"

	"github.com/casamarket/wacampaigns-backend/internal/model"
)

// RenderMessage expands the known {placeholder} tokens with the contact's
// fields. Unknown tokens are left as-is; absent fields become empty.
func RenderMessage(template string, contact *model.Contact) string {
	result := template
	data := map[string]string{
		"nombre_cliente":   contact.FirstName,
		"apellido_cliente": contact.LastName,
		"telefono_cliente": contact.Phone,
	}
	for k, v := range data {
		result = strings.ReplaceAll(result, "{"+k+"}", v)
	}
	return result
}
