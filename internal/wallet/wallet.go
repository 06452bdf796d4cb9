// ABOUTME: Funding target validation and invoice settlement checks
// ABOUTME: Accepts wallet IDs, lightning addresses, and LNURL strings

package wallet

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/fiatjaf/go-lnurl"
	decodepay "github.com/nbd-wtf/ln-decodepay"
)

// ErrInvalidTarget is returned when a funding target is none of the
// accepted forms.
var ErrInvalidTarget = errors.New("invalid funding target")

// ErrUnderpaid is returned when a settled invoice covers less than the
// required amount.
var ErrUnderpaid = errors.New("invoice amount below required fee")

// TargetKind classifies a validated funding target.
type TargetKind string

const (
	TargetWalletID         TargetKind = "wallet_id"
	TargetLightningAddress TargetKind = "lightning_address"
	TargetLNURL            TargetKind = "lnurl"
)

// ValidateTarget classifies a paid-join funding target. A target is a
// local wallet identifier, a lightning address, or a bech32 LNURL.
func ValidateTarget(target string) (TargetKind, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return "", fmt.Errorf("%w: empty target", ErrInvalidTarget)
	}

	if strings.HasPrefix(strings.ToLower(target), "lnurl") {
		if _, err := lnurl.LNURLDecode(target); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidTarget, err)
		}
		return TargetLNURL, nil
	}

	if strings.Contains(target, "@") {
		addr, err := mail.ParseAddress(target)
		if err != nil || addr.Address != target {
			return "", fmt.Errorf("%w: malformed lightning address", ErrInvalidTarget)
		}
		return TargetLightningAddress, nil
	}

	// Anything else is treated as an opaque wallet identifier, as long
	// as it has no whitespace.
	if strings.ContainsAny(target, " \t\n") {
		return "", fmt.Errorf("%w: wallet id contains whitespace", ErrInvalidTarget)
	}
	return TargetWalletID, nil
}

// PayEndpoint resolves a funding target to the URL its pay request
// lives at. Wallet IDs have no endpoint and return empty.
func PayEndpoint(target string) (string, error) {
	kind, err := ValidateTarget(target)
	if err != nil {
		return "", err
	}

	switch kind {
	case TargetLNURL:
		return lnurl.LNURLDecode(target)
	case TargetLightningAddress:
		name, domain, _ := strings.Cut(target, "@")
		return "https://" + domain + "/.well-known/lnurlp/" + name, nil
	default:
		return "", nil
	}
}

// VerifySettlement decodes a bolt11 invoice and checks it covers the
// required join fee. The decoded invoice is returned so callers can
// record the actual amount paid.
func VerifySettlement(invoice string, requiredSats int64) (decodepay.Bolt11, error) {
	bolt11, err := decodepay.Decodepay(strings.TrimSpace(invoice))
	if err != nil {
		return bolt11, fmt.Errorf("decoding invoice: %w", err)
	}

	if bolt11.MSatoshi/1000 < requiredSats {
		return bolt11, fmt.Errorf("%w: got %d sats, need %d",
			ErrUnderpaid, bolt11.MSatoshi/1000, requiredSats)
	}
	return bolt11, nil
}
