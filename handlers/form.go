package handlers

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Protyush1995/Docto-friend/apperr"
)

// formFields flattens a JSON object, urlencoded or multipart body into
// string fields. Repeated keys and JSON arrays are joined with commas, the
// shape list fields such as visit days are parsed from.
func formFields(c *fiber.Ctx) (map[string]string, error) {
	fields := make(map[string]string)

	if strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEApplicationJSON) {
		if len(c.Body()) == 0 {
			return fields, nil
		}
		var raw map[string]any
		if err := json.Unmarshal(c.Body(), &raw); err != nil {
			return nil, apperr.Validation("body", "Invalid request body")
		}
		for k, v := range raw {
			if s, ok := stringify(v); ok {
				fields[k] = s
			}
		}
		return fields, nil
	}

	add := func(k, v string) {
		if prev, ok := fields[k]; ok && prev != "" {
			fields[k] = prev + "," + v
			return
		}
		fields[k] = v
	}
	c.Request().PostArgs().VisitAll(func(k, v []byte) {
		add(string(k), string(v))
	})
	if form, err := c.MultipartForm(); err == nil {
		for k, vs := range form.Value {
			for _, v := range vs {
				add(k, v)
			}
		}
	}
	return fields, nil
}

func stringify(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(val), true
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := stringify(item); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ","), true
	default:
		return fmt.Sprint(val), true
	}
}
