package model

// SourceID names one external data source.
type SourceID string

const (
	SourceWebsite         SourceID = "website"
	SourceAboutPage       SourceID = "about_page"
	SourceContactPage     SourceID = "contact_page"
	SourceCompanyRegistry SourceID = "company_registry"
	SourceBusinessListing SourceID = "business_listing"
	SourceFunding         SourceID = "funding"
	SourceLinkedIn        SourceID = "linkedin"
	SourceTwitter         SourceID = "twitter"
	SourceYouTube         SourceID = "youtube"
	SourceReddit          SourceID = "reddit"
	SourceGitHub          SourceID = "github"
	SourceWikipedia       SourceID = "wikipedia"
)

// AllSources returns every source ID in canonical order.
func AllSources() []SourceID {
	return []SourceID{
		SourceWebsite,
		SourceAboutPage,
		SourceContactPage,
		SourceCompanyRegistry,
		SourceBusinessListing,
		SourceFunding,
		SourceLinkedIn,
		SourceTwitter,
		SourceYouTube,
		SourceReddit,
		SourceGitHub,
		SourceWikipedia,
	}
}

// Valid reports whether s is a known source.
func (s SourceID) Valid() bool {
	for _, v := range AllSources() {
		if s == v {
			return true
		}
	}
	return false
}
