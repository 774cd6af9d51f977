package errors

// ForLog formats an error as key-value pairs suitable for slog attributes,
// so every degradation/failure path logs structured fields instead of a
// bare message.
func ForLog(err error) map[string]any {
	if err == nil {
		return nil
	}

	re, ok := err.(*RecallError)
	if !ok {
		return map[string]any{"error": err.Error()}
	}

	result := map[string]any{
		"error_code": re.Code,
		"message":    re.Message,
		"category":   string(re.Category),
		"retryable":  re.Retryable,
	}

	if re.Cause != nil {
		result["cause"] = re.Cause.Error()
	}

	for k, v := range re.Details {
		result["detail_"+k] = v
	}

	return result
}
