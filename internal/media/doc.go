// Package media defines the records that flow from discovery into the track
// registry: file observations, per-track audio metadata, and registry tracks.
//
// ExpandTracks turns one observation into its registry entries and owns the
// track key format. The package also carries the extension-based MIME lookup
// used for archive members, which are never read far enough to sniff.
package media
