package services

import (
	"github.com/desertthunder/beatbuddy/internal/models"
	"github.com/tidwall/gjson"
)

// NormalizeTrack flattens a track payload. It accepts a track object, a
// track.getInfo body ({"track": {...}}), or a list item from search/chart/similar results.
func NormalizeTrack(data gjson.Result) models.Record {
	rec := models.NewRecord(models.RecordTrack)
	nested := data.Get("track")

	rec.Title = firstString(rec.Title, data.Get("name"), nested.Get("name"))
	rec.Artist = firstString(rec.Artist, artistName(data.Get("artist")), artistName(nested.Get("artist")))
	rec.ReleaseDate = firstString(rec.ReleaseDate, data.Get("wiki.published"), nested.Get("wiki.published"))
	rec.Album = firstString(rec.Album, data.Get("album.title"), nested.Get("album.title"))

	if tags := data.Get("toptags.tag"); tags.Exists() {
		rec.TopTags = tagNames(tags)
	} else {
		rec.TopTags = tagNames(nested.Get("toptags.tag"))
	}

	rec.ImageURL = firstString(models.NoImage,
		ExtraLargeImage(data.Get("album.image")),
		ExtraLargeImage(nested.Get("album.image")),
	)
	return rec
}

// NormalizeAlbum flattens an album payload (album.getInfo body or album.search item).
func NormalizeAlbum(data gjson.Result) models.Record {
	rec := models.NewRecord(models.RecordAlbum)
	if nested := data.Get("album"); nested.IsObject() {
		data = nested
	}

	rec.Title = firstString(rec.Title, data.Get("name"))
	rec.Album = rec.Title
	rec.Artist = firstString(rec.Artist, artistName(data.Get("artist")))
	rec.ReleaseDate = firstString(rec.ReleaseDate, data.Get("wiki.published"))
	rec.TopTags = tagNames(data.Get("tags.tag"))
	rec.ImageURL = firstString(models.NoImage, ExtraLargeImage(data.Get("image")))
	return rec
}

// NormalizeArtist flattens an artist payload.
func NormalizeArtist(data gjson.Result) models.Record {
	rec := models.NewRecord(models.RecordArtist)
	if nested := data.Get("artist"); nested.IsObject() {
		data = nested
	}

	rec.Title = firstString(rec.Title, data.Get("name"))
	rec.Artist = rec.Title
	rec.TopTags = tagNames(data.Get("tags.tag"))
	return rec
}

func normalizeTag(data gjson.Result) models.Record {
	rec := models.NewRecord(models.RecordTag)
	rec.Title = firstString(rec.Title, data.Get("name"))
	return rec
}

// ExtraLargeImage returns the URL of the "extralarge" entry of a Last.fm image list, or "".
func ExtraLargeImage(images gjson.Result) string {
	url := ""
	forEachItem(images, func(img gjson.Result) {
		if url == "" && img.Get("size").String() == "extralarge" {
			url = img.Get(`\#text`).String()
		}
	})
	return url
}

// artistName resolves an artist given either as a plain string or as {"name": ...}.
func artistName(v gjson.Result) gjson.Result {
	if v.IsObject() {
		return v.Get("name")
	}
	return v
}

// firstString returns the first non-empty string among values, or fallback.
func firstString(fallback string, values ...any) string {
	for _, v := range values {
		switch s := v.(type) {
		case gjson.Result:
			if s.Type == gjson.String && s.Str != "" {
				return s.Str
			}
		case string:
			if s != "" {
				return s
			}
		}
	}
	return fallback
}

// tagNames collects tag names; Last.fm returns a single object instead of an array for one tag.
func tagNames(tags gjson.Result) []string {
	names := []string{}
	forEachItem(tags, func(tag gjson.Result) {
		if name := tag.Get("name").String(); name != "" {
			names = append(names, name)
		}
	})
	return names
}

// forEachItem iterates an array, or visits a lone object once.
func forEachItem(v gjson.Result, fn func(gjson.Result)) {
	switch {
	case v.IsArray():
		v.ForEach(func(_, item gjson.Result) bool {
			fn(item)
			return true
		})
	case v.IsObject():
		fn(v)
	}
}
