package media

import "strconv"

// ExpandTracks returns one registry track per audio track of obs. A track's
// key suffix is its explicit track id when present and its position
// otherwise; an observation without tracks yields a single track at index 0.
func ExpandTracks(obs Observation) []Track {
	infos := obs.AudioTracks
	if len(infos) == 0 {
		infos = []TrackInfo{{}}
	}
	base := obs.Key()
	tracks := make([]Track, 0, len(infos))
	for pos, info := range infos {
		index := pos
		if info.TrackID != nil {
			index = *info.TrackID
		}
		var member *Member
		if obs.Member != nil {
			copied := *obs.Member
			member = &copied
		}
		tracks = append(tracks, Track{
			Key:        base + "/" + strconv.Itoa(index),
			FileInfo:   obs.FileInfo,
			Member:     member,
			AudioTrack: info,
		})
	}
	return tracks
}
