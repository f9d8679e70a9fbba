package services

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/yeremiapane/restobooker/models"
)

// SiteInfo carries the public base URL and the local zone used in outgoing
// documents.
type SiteInfo struct {
	BaseURL  string
	Location *time.Location
}

func (s SiteInfo) base() string { return strings.TrimRight(s.BaseURL, "/") }

// Host is the base URL without scheme, used in calendar UIDs.
func (s SiteInfo) Host() string {
	if u, err := url.Parse(s.BaseURL); err == nil && u.Host != "" {
		return u.Host
	}
	host := strings.TrimPrefix(strings.TrimPrefix(s.BaseURL, "https://"), "http://")
	return strings.TrimRight(host, "/")
}

// BookingURL links to the staff detail view of a reservation.
func (s SiteInfo) BookingURL(reservationID uint) string {
	return fmt.Sprintf("%s/manager/bookings/%d", s.base(), reservationID)
}

// ICSURL is the public calendar download link for token.
func (s SiteInfo) ICSURL(token string) string {
	return fmt.Sprintf("%s/api/ical?token=%s", s.base(), url.QueryEscape(token))
}

func (s SiteInfo) location() *time.Location {
	if s.Location == nil {
		return time.Local
	}
	return s.Location
}

// Text values are escaped here because SetProperty writes them as given.
var icsEscaper = strings.NewReplacer(`\`, `\\`, ",", `\,`, ";", `\;`, "\r\n", `\n`, "\n", `\n`)

func icsEscape(s string) string { return icsEscaper.Replace(s) }

const icsLocalLayout = "20060102T150405"

// BuildReservationICS renders a single-event iCalendar document for r. Start and end
// are wall-clock times in the site zone, described by a VTIMEZONE; DTSTAMP is UTC.
// r.Table and r.Table.Area must be loaded.
func BuildReservationICS(r models.Reservation, site SiteInfo, now time.Time) string {
	loc := site.location()
	start := r.DatetimeStart.In(loc)
	tzid := loc.String()
	tzParam := &ics.KeyValues{Key: "TZID", Value: []string{tzid}}

	cal := ics.NewCalendar()
	cal.SetProductId("-//RestoBooker//Booking//EN")
	cal.SetMethod(ics.MethodPublish)

	// Fixed-offset description of the zone at the visit start.
	abbrev, offset := start.Zone()
	tz := cal.AddTimezone(tzid)
	std := tz.AddStandard()
	std.SetProperty(ics.ComponentPropertyDtStart, "19700101T000000")
	std.SetProperty(ics.ComponentProperty("TZOFFSETFROM"), utcOffset(offset))
	std.SetProperty(ics.ComponentProperty("TZOFFSETTO"), utcOffset(offset))
	std.SetProperty(ics.ComponentProperty("TZNAME"), abbrev)

	summary := fmt.Sprintf("Table booking %s (%s)", r.Table.Name, r.Table.Area.Name)
	location := fmt.Sprintf("%s, table %s", r.Table.Area.Name, r.Table.Name)
	description := fmt.Sprintf("Guests: %d. Contact: %s %s %s.", r.Guests, r.Name, r.Phone, r.Email)

	event := cal.AddEvent(fmt.Sprintf("restobooker-%d@%s", r.ID, site.Host()))
	event.SetDtStampTime(now)
	event.SetProperty(ics.ComponentPropertyDtStart, start.Format(icsLocalLayout), tzParam)
	event.SetProperty(ics.ComponentPropertyDtEnd, r.DatetimeEnd.In(loc).Format(icsLocalLayout), tzParam)
	event.SetProperty(ics.ComponentPropertySummary, icsEscape(summary))
	event.SetProperty(ics.ComponentPropertyLocation, icsEscape(location))
	event.SetProperty(ics.ComponentPropertyDescription, icsEscape(description)+`\n`+icsEscape(site.BookingURL(r.ID)))
	event.SetProperty(ics.ComponentProperty("URL"), site.BookingURL(r.ID))

	return cal.Serialize()
}

// utcOffset formats seconds east of UTC as an iCalendar UTC-OFFSET, e.g. +0300.
func utcOffset(seconds int) string {
	sign := "+"
	if seconds < 0 {
		sign = "-"
		seconds = -seconds
	}
	return fmt.Sprintf("%s%02d%02d", sign, seconds/3600, seconds%3600/60)
}

// ICSFilename is the download name of a reservation's calendar file.
func ICSFilename(reservationID uint) string {
	return fmt.Sprintf("booking_%d.ics", reservationID)
}
