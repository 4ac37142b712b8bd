package store

import (
	"fmt"
	"path"
	"strings"
)

const (
	usersDir    = "users"
	resumesDir  = "resumes"
	filesDir    = "files"
	analysesDir = "analyses"
	jsonExt     = ".json"
)

func checkSegment(kind, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidKey, kind)
	}
	if value == "." || value == ".." || strings.ContainsAny(value, `/\`) || strings.ContainsRune(value, 0) {
		return fmt.Errorf("%w: %s %q", ErrInvalidKey, kind, value)
	}
	return nil
}

func userPrefix(userID string) (string, error) {
	if err := checkSegment("user id", userID); err != nil {
		return "", err
	}
	return path.Join(usersDir, userID), nil
}

// AnalysesPrefix is the key prefix holding a user's analysis records.
func AnalysesPrefix(userID string) (string, error) {
	prefix, err := userPrefix(userID)
	if err != nil {
		return "", err
	}
	return path.Join(prefix, analysesDir) + "/", nil
}

func AnalysisKey(userID, id string) (string, error) {
	prefix, err := AnalysesPrefix(userID)
	if err != nil {
		return "", err
	}
	if err := checkSegment("analysis id", id); err != nil {
		return "", err
	}
	return prefix + id + jsonExt, nil
}

func ResumeKey(userID, id string) (string, error) {
	prefix, err := userPrefix(userID)
	if err != nil {
		return "", err
	}
	if err := checkSegment("resume id", id); err != nil {
		return "", err
	}
	return path.Join(prefix, resumesDir, id+jsonExt), nil
}

// ResumeFileKey keeps the upload's extension so the file stays recognisable.
func ResumeFileKey(userID, id, filename string) (string, error) {
	prefix, err := userPrefix(userID)
	if err != nil {
		return "", err
	}
	if err := checkSegment("resume id", id); err != nil {
		return "", err
	}

	ext := strings.ToLower(path.Ext(strings.ReplaceAll(filename, `\`, "/")))
	if strings.ContainsAny(ext, " \t") {
		ext = ""
	}
	return path.Join(prefix, resumesDir, filesDir, id+ext), nil
}
