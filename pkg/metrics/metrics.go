package metrics

const namespace = "pixiedvc"

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
