// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package dsfetch

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"strings"
)

// DigestOf returns the lowercase hex SHA-256 of the file at path.
func DigestOf(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Matches reports whether the file at path hashes to expected. Hex case is
// ignored.
func Matches(path, expected string) (bool, error) {
	sum, err := DigestOf(path)
	if err != nil {
		return false, err
	}
	return digestEqual(sum, expected), nil
}

func digestEqual(actual, expected string) bool {
	return strings.EqualFold(actual, strings.TrimSpace(expected))
}

// present reports whether path is an existing, non-empty regular file.
func present(path string) (bool, error) {
	fi, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return fi.Mode().IsRegular() && fi.Size() > 0, nil
}
