package service

import "regexp"

var soundCloudLink = regexp.MustCompile(`(?i)https?://(?:www\.)?(?:soundcloud\.com|on\.soundcloud\.com)/\S+`)

// ExtractLink returns the first SoundCloud URL found in text.
func ExtractLink(text string) (string, bool) {
	link := soundCloudLink.FindString(text)
	return link, link != ""
}
