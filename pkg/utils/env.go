package utils

import (
	"os"
	"strconv"
)

func ParseWithFallback(envName string, fallback string) string {
	result := os.Getenv(envName)
	if result == "" {
		result = fallback
	}

	return result
}

func ParseBoolWithFallback(envName string, fallback bool) bool {
	result, err := strconv.ParseBool(os.Getenv(envName))
	if err != nil {
		return fallback
	}

	return result
}
