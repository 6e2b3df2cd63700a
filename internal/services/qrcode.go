package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"unicode"

	"guestgallery/internal/domain"
)

const (
	qrPrefixLength  = 4
	qrSuffixLength  = 6
	qrIssueAttempts = 5
)

// Suffix alphabet omits 0/O/1/I so codes stay typable from a printout.
var qrSuffixAlphabet = []rune("23456789ABCDEFGHJKLMNPQRSTUVWXYZ")

type qrCodeIssuer struct {
	attendanceRepo domain.AttendanceRepository
	attendeeRepo   domain.AttendeeRepository
}

// NewQRCodeIssuer creates a QRCodeIssuer backed by the attendance store. The
// store's unique index on qr_code is the uniqueness guarantee; the issuer
// retries with a fresh suffix when a candidate collides.
func NewQRCodeIssuer(attendanceRepo domain.AttendanceRepository, attendeeRepo domain.AttendeeRepository) domain.QRCodeIssuer {
	return &qrCodeIssuer{attendanceRepo: attendanceRepo, attendeeRepo: attendeeRepo}
}

// Generate builds a candidate code PREFIX-SUFFIX: the prefix is derived from
// the display name for debuggability, the suffix is crypto/rand over a
// 32-rune alphabet (about 1.07e9 combinations).
func (i *qrCodeIssuer) Generate(displayName string) (string, error) {
	suffix, err := randomSuffix(qrSuffixLength)
	if err != nil {
		return "", fmt.Errorf("generate qr suffix: %w", err)
	}
	return namePrefix(displayName) + "-" + suffix, nil
}

func (i *qrCodeIssuer) Issue(ctx context.Context, att *domain.Attendance) (string, error) {
	if att.QRCode != nil {
		return "", domain.ErrAlreadyIssued
	}
	displayName, err := i.displayNameFor(ctx, att)
	if err != nil {
		return "", err
	}
	for attempt := 0; attempt < qrIssueAttempts; attempt++ {
		code, err := i.Generate(displayName)
		if err != nil {
			return "", err
		}
		applied, err := i.attendanceRepo.PromoteToConfirmed(ctx, att.ID, code, att.Companions)
		if err != nil {
			if errors.Is(err, domain.ErrQRCodeTaken) {
				continue
			}
			return "", fmt.Errorf("assign qr code: %w", err)
		}
		if !applied {
			// Someone else confirmed this attendance in the meantime.
			return "", domain.ErrAlreadyIssued
		}
		return code, nil
	}
	return "", fmt.Errorf("issue qr code: exhausted %d attempts", qrIssueAttempts)
}

func (i *qrCodeIssuer) Reissue(ctx context.Context, att *domain.Attendance) (string, error) {
	if att.QRCode == nil {
		return "", fmt.Errorf("%w: attendance has no code to replace", domain.ErrInvalidInput)
	}
	displayName, err := i.displayNameFor(ctx, att)
	if err != nil {
		return "", err
	}
	for attempt := 0; attempt < qrIssueAttempts; attempt++ {
		code, err := i.Generate(displayName)
		if err != nil {
			return "", err
		}
		applied, err := i.attendanceRepo.ReplaceQRCode(ctx, att.ID, code)
		if err != nil {
			if errors.Is(err, domain.ErrQRCodeTaken) {
				continue
			}
			return "", fmt.Errorf("replace qr code: %w", err)
		}
		if !applied {
			return "", domain.ErrNotFound
		}
		return code, nil
	}
	return "", fmt.Errorf("reissue qr code: exhausted %d attempts", qrIssueAttempts)
}

func (i *qrCodeIssuer) displayNameFor(ctx context.Context, att *domain.Attendance) (string, error) {
	attendee, err := i.attendeeRepo.GetByID(ctx, att.AttendeeID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("get attendee: %w", err)
	}
	return attendee.DisplayName, nil
}

// namePrefix reduces a display name to qrPrefixLength uppercase ASCII
// letters, padding with X when the name is too short or non-Latin.
func namePrefix(displayName string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(displayName) {
		if b.Len() >= qrPrefixLength {
			break
		}
		if r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
			continue
		}
		if unicode.IsLetter(r) {
			// Strip accents crudely: skip non-ASCII letters.
			continue
		}
	}
	for b.Len() < qrPrefixLength {
		b.WriteByte('X')
	}
	return b.String()
}

func randomSuffix(length int) (string, error) {
	b := make([]rune, length)
	max := big.NewInt(int64(len(qrSuffixAlphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = qrSuffixAlphabet[n.Int64()]
	}
	return string(b), nil
}
