package media

import (
	"net/url"
	"path/filepath"
	"strings"
)

// Metadata describes the acquired video.
type Metadata struct {
	VideoID    string `json:"video_id"`
	Title      string `json:"title"`
	Channel    string `json:"channel"`
	Duration   uint64 `json:"duration"`
	UploadDate string `json:"upload_date"`
	Platform   string `json:"platform"`
	URL        string `json:"url"`
}

const localLabel = "Local File"

// LocalMetadata builds metadata for a local file: the file stem doubles
// as id and title.
func LocalMetadata(path string) Metadata {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if stem == "" || stem == "." {
		stem = "unknown"
	}
	return Metadata{
		VideoID:  stem,
		Title:    stem,
		Channel:  localLabel,
		Platform: localLabel,
		URL:      path,
	}
}

var platformHosts = []struct {
	suffixes []string
	name     string
}{
	{[]string{"youtube.com", "youtu.be"}, "YouTube"},
	{[]string{"vimeo.com"}, "Vimeo"},
	{[]string{"tiktok.com"}, "TikTok"},
	{[]string{"twitter.com", "x.com"}, "Twitter/X"},
	{[]string{"facebook.com", "fb.watch"}, "Facebook"},
	{[]string{"instagram.com"}, "Instagram"},
	{[]string{"twitch.tv"}, "Twitch"},
	{[]string{"dailymotion.com", "dai.ly"}, "Dailymotion"},
	{[]string{"reddit.com", "redd.it"}, "Reddit"},
	{[]string{"linkedin.com"}, "LinkedIn"},
}

// DetectPlatform names the hosting platform from the URL host, falling back
// to the downloader's extractor key and then to "Unknown".
func DetectPlatform(rawURL, extractor string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host := strings.ToLower(u.Hostname())
		for _, p := range platformHosts {
			for _, suffix := range p.suffixes {
				if host == suffix || strings.HasSuffix(host, "."+suffix) {
					return p.name
				}
			}
		}
	}
	if extractor != "" {
		return extractor
	}
	return "Unknown"
}
