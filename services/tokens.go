package services

import "fmt"

// tokenPair returns two distinct capability tokens from the injected
// generator. Collisions are next to impossible with 32 random bytes,
// but an accept/decline (or approve/decline) pair must never be equal,
// so a duplicate draw is retried.
func tokenPair(newToken func() (string, error)) (string, string, error) {
	first, err := newToken()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate token: %w", err)
	}

	second, err := newToken()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate token: %w", err)
	}

	for second == first {
		second, err = newToken()
		if err != nil {
			return "", "", fmt.Errorf("failed to generate token: %w", err)
		}
	}

	return first, second, nil
}
