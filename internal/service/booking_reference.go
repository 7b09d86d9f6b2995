package service

import (
	"encoding/base32"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const bookingReferencePrefix = "BK-"

// crockford is Crockford's base32 alphabet: no I, L, O or U, so references
// survive being read aloud over the phone.
var crockford = base32.NewEncoding("0123456789ABCDEFGHJKMNPQRSTVWXYZ").WithPadding(base32.NoPadding)

var bookingReferencePattern = regexp.MustCompile(`^BK-[0-9]{6}-[0-9A-HJKMNP-TV-Z]{8}$`)

// BookingReferenceGenerator mints human-facing references of the form
// BK-YYMMDD-XXXXXXXX. The date is the claim date in the facility zone and the
// suffix is 40 random bits of the reservation id.
type BookingReferenceGenerator struct {
	loc *time.Location
}

func NewBookingReferenceGenerator(loc *time.Location) *BookingReferenceGenerator {
	if loc == nil {
		loc = time.UTC
	}
	return &BookingReferenceGenerator{loc: loc}
}

func (g *BookingReferenceGenerator) Generate(claimedAt time.Time, id uuid.UUID) string {
	// Bytes 10..14 of a v4 uuid carry no version or variant bits.
	suffix := crockford.EncodeToString(id[10:15])
	return bookingReferencePrefix + claimedAt.In(g.loc).Format("060102") + "-" + suffix
}

// NormalizeBookingReference upper-cases and trims user-typed input.
func NormalizeBookingReference(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// IsBookingReference reports whether s is a well-formed reference.
func IsBookingReference(s string) bool {
	return bookingReferencePattern.MatchString(s)
}
