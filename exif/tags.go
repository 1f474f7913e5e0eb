package exif

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/rwcarlsen/exifprofile/tiff"
)

// Tag identifies an EXIF field. Identifiers of the primary image IFD, the
// Exif sub-IFD and the GPS sub-IFD do not overlap.
type Tag uint16

// Primary image (IFD0) tags.
const (
	ImageWidth                Tag = 0x0100
	ImageLength               Tag = 0x0101
	BitsPerSample             Tag = 0x0102
	Compression               Tag = 0x0103
	PhotometricInterpretation Tag = 0x0106
	ImageDescription          Tag = 0x010E
	Make                      Tag = 0x010F
	Model                     Tag = 0x0110
	StripOffsets              Tag = 0x0111
	Orientation               Tag = 0x0112
	SamplesPerPixel           Tag = 0x0115
	RowsPerStrip              Tag = 0x0116
	StripByteCounts           Tag = 0x0117
	XResolution               Tag = 0x011A
	YResolution               Tag = 0x011B
	PlanarConfiguration       Tag = 0x011C
	ResolutionUnit            Tag = 0x0128
	TransferFunction          Tag = 0x012D
	Software                  Tag = 0x0131
	DateTime                  Tag = 0x0132
	Artist                    Tag = 0x013B
	HostComputer              Tag = 0x013C
	WhitePoint                Tag = 0x013E
	PrimaryChromaticities     Tag = 0x013F
	YCbCrCoefficients         Tag = 0x0211
	YCbCrSubSampling          Tag = 0x0212
	YCbCrPositioning          Tag = 0x0213
	ReferenceBlackWhite       Tag = 0x0214
	Rating                    Tag = 0x4746
	RatingPercent             Tag = 0x4749
	Copyright                 Tag = 0x8298
	XPTitle                   Tag = 0x9C9B
	XPComment                 Tag = 0x9C9C
	XPAuthor                  Tag = 0x9C9D
	XPKeywords                Tag = 0x9C9E
	XPSubject                 Tag = 0x9C9F
)

// Exif sub-IFD tags.
const (
	ExposureTime             Tag = 0x829A
	FNumber                  Tag = 0x829D
	ExposureProgram          Tag = 0x8822
	SpectralSensitivity      Tag = 0x8824
	ISOSpeedRatings          Tag = 0x8827
	OECF                     Tag = 0x8828
	ExifVersion              Tag = 0x9000
	DateTimeOriginal         Tag = 0x9003
	DateTimeDigitized        Tag = 0x9004
	OffsetTime               Tag = 0x9010
	OffsetTimeOriginal       Tag = 0x9011
	OffsetTimeDigitized      Tag = 0x9012
	ComponentsConfiguration  Tag = 0x9101
	CompressedBitsPerPixel   Tag = 0x9102
	ShutterSpeedValue        Tag = 0x9201
	ApertureValue            Tag = 0x9202
	BrightnessValue          Tag = 0x9203
	ExposureBiasValue        Tag = 0x9204
	MaxApertureValue         Tag = 0x9205
	SubjectDistance          Tag = 0x9206
	MeteringMode             Tag = 0x9207
	LightSource              Tag = 0x9208
	Flash                    Tag = 0x9209
	FocalLength              Tag = 0x920A
	SubjectArea              Tag = 0x9214
	MakerNote                Tag = 0x927C
	UserComment              Tag = 0x9286
	SubsecTime               Tag = 0x9290
	SubsecTimeOriginal       Tag = 0x9291
	SubsecTimeDigitized      Tag = 0x9292
	FlashpixVersion          Tag = 0xA000
	ColorSpace               Tag = 0xA001
	PixelXDimension          Tag = 0xA002
	PixelYDimension          Tag = 0xA003
	RelatedSoundFile         Tag = 0xA004
	FlashEnergy              Tag = 0xA20B
	FocalPlaneXResolution    Tag = 0xA20E
	FocalPlaneYResolution    Tag = 0xA20F
	FocalPlaneResolutionUnit Tag = 0xA210
	SubjectLocation          Tag = 0xA214
	ExposureIndex            Tag = 0xA215
	SensingMethod            Tag = 0xA217
	FileSource               Tag = 0xA300
	SceneType                Tag = 0xA301
	CFAPattern               Tag = 0xA302
	CustomRendered           Tag = 0xA401
	ExposureMode             Tag = 0xA402
	WhiteBalance             Tag = 0xA403
	DigitalZoomRatio         Tag = 0xA404
	FocalLengthIn35mmFilm    Tag = 0xA405
	SceneCaptureType         Tag = 0xA406
	GainControl              Tag = 0xA407
	Contrast                 Tag = 0xA408
	Saturation               Tag = 0xA409
	Sharpness                Tag = 0xA40A
	DeviceSettingDescription Tag = 0xA40B
	SubjectDistanceRange     Tag = 0xA40C
	ImageUniqueID            Tag = 0xA420
	CameraOwnerName          Tag = 0xA430
	BodySerialNumber         Tag = 0xA431
	LensSpecification        Tag = 0xA432
	LensMake                 Tag = 0xA433
	LensModel                Tag = 0xA434
	LensSerialNumber         Tag = 0xA435
)

// GPS sub-IFD tags.
const (
	GPSVersionID         Tag = 0x0000
	GPSLatitudeRef       Tag = 0x0001
	GPSLatitude          Tag = 0x0002
	GPSLongitudeRef      Tag = 0x0003
	GPSLongitude         Tag = 0x0004
	GPSAltitudeRef       Tag = 0x0005
	GPSAltitude          Tag = 0x0006
	GPSTimeStamp         Tag = 0x0007
	GPSSatellites        Tag = 0x0008
	GPSStatus            Tag = 0x0009
	GPSMeasureMode       Tag = 0x000A
	GPSDOP               Tag = 0x000B
	GPSSpeedRef          Tag = 0x000C
	GPSSpeed             Tag = 0x000D
	GPSTrackRef          Tag = 0x000E
	GPSTrack             Tag = 0x000F
	GPSImgDirectionRef   Tag = 0x0010
	GPSImgDirection      Tag = 0x0011
	GPSMapDatum          Tag = 0x0012
	GPSDestLatitudeRef   Tag = 0x0013
	GPSDestLatitude      Tag = 0x0014
	GPSDestLongitudeRef  Tag = 0x0015
	GPSDestLongitude     Tag = 0x0016
	GPSDestBearingRef    Tag = 0x0017
	GPSDestBearing       Tag = 0x0018
	GPSDestDistanceRef   Tag = 0x0019
	GPSDestDistance      Tag = 0x001A
	GPSProcessingMethod  Tag = 0x001B
	GPSAreaInformation   Tag = 0x001C
	GPSDateStamp         Tag = 0x001D
	GPSDifferential      Tag = 0x001E
)

// Structural tags. They describe the layout of the block rather than the
// image and are never exposed as values.
const (
	ExifIFDPointer              Tag = 0x8769
	GPSIFDPointer               Tag = 0x8825
	InteropIFDPointer           Tag = 0xA005
	JPEGInterchangeFormat       Tag = 0x0201
	JPEGInterchangeFormatLength Tag = 0x0202
)

// Parts selects groups of tags for serialization.
type Parts uint8

const (
	PartIFD0 Parts = 1 << iota
	PartExif
	PartGPS
	PartThumbnail

	PartNone Parts = 0
	PartAll        = PartIFD0 | PartExif | PartGPS | PartThumbnail
)

var partNames = []struct {
	p    Parts
	name string
}{
	{PartIFD0, "ifd0"},
	{PartExif, "exif"},
	{PartGPS, "gps"},
	{PartThumbnail, "thumbnail"},
}

func (p Parts) String() string {
	switch p {
	case PartNone:
		return "none"
	case PartAll:
		return "all"
	}
	var names []string
	for _, pn := range partNames {
		if p&pn.p != 0 {
			names = append(names, pn.name)
		}
	}
	return strings.Join(names, ",")
}

// ParseParts parses a comma separated list of part names as produced by
// Parts.String.
func ParseParts(s string) (Parts, error) {
	var p Parts
	for _, name := range strings.Split(s, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		switch name {
		case "", "none":
			continue
		case "all":
			p |= PartAll
			continue
		}
		found := false
		for _, pn := range partNames {
			if pn.name == name {
				p |= pn.p
				found = true
			}
		}
		if !found {
			return PartNone, errors.Errorf("exif: unknown part %q", name)
		}
	}
	return p, nil
}

type tagInfo struct {
	name  string
	part  Parts
	count uint32 // 0 for variable length
	types []tiff.DataType
}

func (ti tagInfo) accepts(dt tiff.DataType) bool {
	for _, t := range ti.types {
		if t == dt {
			return true
		}
	}
	return false
}

var (
	tByte        = []tiff.DataType{tiff.DTByte}
	tASCII       = []tiff.DataType{tiff.DTAscii}
	tShort       = []tiff.DataType{tiff.DTShort}
	tShortOrLong = []tiff.DataType{tiff.DTShort, tiff.DTLong}
	tRational    = []tiff.DataType{tiff.DTRational}
	tSRational   = []tiff.DataType{tiff.DTSRational}
	tUndefined   = []tiff.DataType{tiff.DTUndefined}
	tLong        = []tiff.DataType{tiff.DTLong}
)

var catalog = map[Tag]tagInfo{
	ImageWidth:                {"ImageWidth", PartIFD0, 1, tShortOrLong},
	ImageLength:               {"ImageLength", PartIFD0, 1, tShortOrLong},
	BitsPerSample:             {"BitsPerSample", PartIFD0, 3, tShort},
	Compression:               {"Compression", PartIFD0, 1, tShort},
	PhotometricInterpretation: {"PhotometricInterpretation", PartIFD0, 1, tShort},
	ImageDescription:          {"ImageDescription", PartIFD0, 0, tASCII},
	Make:                      {"Make", PartIFD0, 0, tASCII},
	Model:                     {"Model", PartIFD0, 0, tASCII},
	StripOffsets:              {"StripOffsets", PartIFD0, 0, tShortOrLong},
	Orientation:               {"Orientation", PartIFD0, 1, tShort},
	SamplesPerPixel:           {"SamplesPerPixel", PartIFD0, 1, tShort},
	RowsPerStrip:              {"RowsPerStrip", PartIFD0, 1, tShortOrLong},
	StripByteCounts:           {"StripByteCounts", PartIFD0, 0, tShortOrLong},
	XResolution:               {"XResolution", PartIFD0, 1, tRational},
	YResolution:               {"YResolution", PartIFD0, 1, tRational},
	PlanarConfiguration:       {"PlanarConfiguration", PartIFD0, 1, tShort},
	ResolutionUnit:            {"ResolutionUnit", PartIFD0, 1, tShort},
	TransferFunction:          {"TransferFunction", PartIFD0, 768, tShort},
	Software:                  {"Software", PartIFD0, 0, tASCII},
	DateTime:                  {"DateTime", PartIFD0, 0, tASCII},
	Artist:                    {"Artist", PartIFD0, 0, tASCII},
	HostComputer:              {"HostComputer", PartIFD0, 0, tASCII},
	WhitePoint:                {"WhitePoint", PartIFD0, 2, tRational},
	PrimaryChromaticities:     {"PrimaryChromaticities", PartIFD0, 6, tRational},
	YCbCrCoefficients:         {"YCbCrCoefficients", PartIFD0, 3, tRational},
	YCbCrSubSampling:          {"YCbCrSubSampling", PartIFD0, 2, tShort},
	YCbCrPositioning:          {"YCbCrPositioning", PartIFD0, 1, tShort},
	ReferenceBlackWhite:       {"ReferenceBlackWhite", PartIFD0, 6, tRational},
	Rating:                    {"Rating", PartIFD0, 1, tShort},
	RatingPercent:             {"RatingPercent", PartIFD0, 1, tShort},
	Copyright:                 {"Copyright", PartIFD0, 0, tASCII},
	XPTitle:                   {"XPTitle", PartIFD0, 0, tByte},
	XPComment:                 {"XPComment", PartIFD0, 0, tByte},
	XPAuthor:                  {"XPAuthor", PartIFD0, 0, tByte},
	XPKeywords:                {"XPKeywords", PartIFD0, 0, tByte},
	XPSubject:                 {"XPSubject", PartIFD0, 0, tByte},

	ExposureTime:             {"ExposureTime", PartExif, 1, tRational},
	FNumber:                  {"FNumber", PartExif, 1, tRational},
	ExposureProgram:          {"ExposureProgram", PartExif, 1, tShort},
	SpectralSensitivity:      {"SpectralSensitivity", PartExif, 0, tASCII},
	ISOSpeedRatings:          {"ISOSpeedRatings", PartExif, 0, tShort},
	OECF:                     {"OECF", PartExif, 0, tUndefined},
	ExifVersion:              {"ExifVersion", PartExif, 4, tUndefined},
	DateTimeOriginal:         {"DateTimeOriginal", PartExif, 0, tASCII},
	DateTimeDigitized:        {"DateTimeDigitized", PartExif, 0, tASCII},
	OffsetTime:               {"OffsetTime", PartExif, 0, tASCII},
	OffsetTimeOriginal:       {"OffsetTimeOriginal", PartExif, 0, tASCII},
	OffsetTimeDigitized:      {"OffsetTimeDigitized", PartExif, 0, tASCII},
	ComponentsConfiguration:  {"ComponentsConfiguration", PartExif, 4, tUndefined},
	CompressedBitsPerPixel:   {"CompressedBitsPerPixel", PartExif, 1, tRational},
	ShutterSpeedValue:        {"ShutterSpeedValue", PartExif, 1, tSRational},
	ApertureValue:            {"ApertureValue", PartExif, 1, tRational},
	BrightnessValue:          {"BrightnessValue", PartExif, 1, tSRational},
	ExposureBiasValue:        {"ExposureBiasValue", PartExif, 1, tSRational},
	MaxApertureValue:         {"MaxApertureValue", PartExif, 1, tRational},
	SubjectDistance:          {"SubjectDistance", PartExif, 1, tRational},
	MeteringMode:             {"MeteringMode", PartExif, 1, tShort},
	LightSource:              {"LightSource", PartExif, 1, tShort},
	Flash:                    {"Flash", PartExif, 1, tShort},
	FocalLength:              {"FocalLength", PartExif, 1, tRational},
	SubjectArea:              {"SubjectArea", PartExif, 0, tShort},
	MakerNote:                {"MakerNote", PartExif, 0, tUndefined},
	UserComment:              {"UserComment", PartExif, 0, tUndefined},
	SubsecTime:               {"SubsecTime", PartExif, 0, tASCII},
	SubsecTimeOriginal:       {"SubsecTimeOriginal", PartExif, 0, tASCII},
	SubsecTimeDigitized:      {"SubsecTimeDigitized", PartExif, 0, tASCII},
	FlashpixVersion:          {"FlashpixVersion", PartExif, 4, tUndefined},
	ColorSpace:               {"ColorSpace", PartExif, 1, tShort},
	PixelXDimension:          {"PixelXDimension", PartExif, 1, tShortOrLong},
	PixelYDimension:          {"PixelYDimension", PartExif, 1, tShortOrLong},
	RelatedSoundFile:         {"RelatedSoundFile", PartExif, 0, tASCII},
	FlashEnergy:              {"FlashEnergy", PartExif, 1, tRational},
	FocalPlaneXResolution:    {"FocalPlaneXResolution", PartExif, 1, tRational},
	FocalPlaneYResolution:    {"FocalPlaneYResolution", PartExif, 1, tRational},
	FocalPlaneResolutionUnit: {"FocalPlaneResolutionUnit", PartExif, 1, tShort},
	SubjectLocation:          {"SubjectLocation", PartExif, 2, tShort},
	ExposureIndex:            {"ExposureIndex", PartExif, 1, tRational},
	SensingMethod:            {"SensingMethod", PartExif, 1, tShort},
	FileSource:               {"FileSource", PartExif, 1, tUndefined},
	SceneType:                {"SceneType", PartExif, 1, tUndefined},
	CFAPattern:               {"CFAPattern", PartExif, 0, tUndefined},
	CustomRendered:           {"CustomRendered", PartExif, 1, tShort},
	ExposureMode:             {"ExposureMode", PartExif, 1, tShort},
	WhiteBalance:             {"WhiteBalance", PartExif, 1, tShort},
	DigitalZoomRatio:         {"DigitalZoomRatio", PartExif, 1, tRational},
	FocalLengthIn35mmFilm:    {"FocalLengthIn35mmFilm", PartExif, 1, tShort},
	SceneCaptureType:         {"SceneCaptureType", PartExif, 1, tShort},
	GainControl:              {"GainControl", PartExif, 1, tShort},
	Contrast:                 {"Contrast", PartExif, 1, tShort},
	Saturation:               {"Saturation", PartExif, 1, tShort},
	Sharpness:                {"Sharpness", PartExif, 1, tShort},
	DeviceSettingDescription: {"DeviceSettingDescription", PartExif, 0, tUndefined},
	SubjectDistanceRange:     {"SubjectDistanceRange", PartExif, 1, tShort},
	ImageUniqueID:            {"ImageUniqueID", PartExif, 0, tASCII},
	CameraOwnerName:          {"CameraOwnerName", PartExif, 0, tASCII},
	BodySerialNumber:         {"BodySerialNumber", PartExif, 0, tASCII},
	LensSpecification:        {"LensSpecification", PartExif, 4, tRational},
	LensMake:                 {"LensMake", PartExif, 0, tASCII},
	LensModel:                {"LensModel", PartExif, 0, tASCII},
	LensSerialNumber:         {"LensSerialNumber", PartExif, 0, tASCII},

	GPSVersionID:        {"GPSVersionID", PartGPS, 4, tByte},
	GPSLatitudeRef:      {"GPSLatitudeRef", PartGPS, 2, tASCII},
	GPSLatitude:         {"GPSLatitude", PartGPS, 3, tRational},
	GPSLongitudeRef:     {"GPSLongitudeRef", PartGPS, 2, tASCII},
	GPSLongitude:        {"GPSLongitude", PartGPS, 3, tRational},
	GPSAltitudeRef:      {"GPSAltitudeRef", PartGPS, 1, tByte},
	GPSAltitude:         {"GPSAltitude", PartGPS, 1, tRational},
	GPSTimeStamp:        {"GPSTimeStamp", PartGPS, 3, tRational},
	GPSSatellites:       {"GPSSatellites", PartGPS, 0, tASCII},
	GPSStatus:           {"GPSStatus", PartGPS, 2, tASCII},
	GPSMeasureMode:      {"GPSMeasureMode", PartGPS, 2, tASCII},
	GPSDOP:              {"GPSDOP", PartGPS, 1, tRational},
	GPSSpeedRef:         {"GPSSpeedRef", PartGPS, 2, tASCII},
	GPSSpeed:            {"GPSSpeed", PartGPS, 1, tRational},
	GPSTrackRef:         {"GPSTrackRef", PartGPS, 2, tASCII},
	GPSTrack:            {"GPSTrack", PartGPS, 1, tRational},
	GPSImgDirectionRef:  {"GPSImgDirectionRef", PartGPS, 2, tASCII},
	GPSImgDirection:     {"GPSImgDirection", PartGPS, 1, tRational},
	GPSMapDatum:         {"GPSMapDatum", PartGPS, 0, tASCII},
	GPSDestLatitudeRef:  {"GPSDestLatitudeRef", PartGPS, 2, tASCII},
	GPSDestLatitude:     {"GPSDestLatitude", PartGPS, 3, tRational},
	GPSDestLongitudeRef: {"GPSDestLongitudeRef", PartGPS, 2, tASCII},
	GPSDestLongitude:    {"GPSDestLongitude", PartGPS, 3, tRational},
	GPSDestBearingRef:   {"GPSDestBearingRef", PartGPS, 2, tASCII},
	GPSDestBearing:      {"GPSDestBearing", PartGPS, 1, tRational},
	GPSDestDistanceRef:  {"GPSDestDistanceRef", PartGPS, 2, tASCII},
	GPSDestDistance:     {"GPSDestDistance", PartGPS, 1, tRational},
	GPSProcessingMethod: {"GPSProcessingMethod", PartGPS, 0, tUndefined},
	GPSAreaInformation:  {"GPSAreaInformation", PartGPS, 0, tUndefined},
	GPSDateStamp:        {"GPSDateStamp", PartGPS, 11, tASCII},
	GPSDifferential:     {"GPSDifferential", PartGPS, 1, tShort},
}

var structural = map[Tag]tagInfo{
	ExifIFDPointer:              {"ExifIFDPointer", PartIFD0, 1, tLong},
	GPSIFDPointer:               {"GPSIFDPointer", PartIFD0, 1, tLong},
	InteropIFDPointer:           {"InteropIFDPointer", PartExif, 1, tLong},
	JPEGInterchangeFormat:       {"JPEGInterchangeFormat", PartThumbnail, 1, tShortOrLong},
	JPEGInterchangeFormatLength: {"JPEGInterchangeFormatLength", PartThumbnail, 1, tShortOrLong},
}

var tagsByName = map[string]Tag{}

func init() {
	for t, ti := range catalog {
		tagsByName[strings.ToLower(ti.name)] = t
	}
}

// TagByName looks up a catalog tag by name, ignoring case.
func TagByName(name string) (Tag, bool) {
	t, ok := tagsByName[strings.ToLower(name)]
	return t, ok
}

// Known reports whether t is in the tag catalog.
func (t Tag) Known() bool {
	_, ok := catalog[t]
	return ok
}

// Reserved reports whether t is a structural tag that cannot be stored as
// a value.
func (t Tag) Reserved() bool {
	_, ok := structural[t]
	return ok
}

// Part returns the group a catalog tag belongs to, or PartIFD0 for tags
// outside the catalog.
func (t Tag) Part() Parts {
	if ti, ok := catalog[t]; ok {
		return ti.part
	}
	return PartIFD0
}

// Types returns the data types the catalog accepts for t, preferred first.
// It returns nil for tags outside the catalog.
func (t Tag) Types() []tiff.DataType {
	ti, ok := catalog[t]
	if !ok {
		return nil
	}
	return append([]tiff.DataType(nil), ti.types...)
}

// Count returns the component count the catalog expects for t, 0 if the
// count is variable or t is unknown.
func (t Tag) Count() uint32 {
	return catalog[t].count
}

func (t Tag) String() string {
	if ti, ok := catalog[t]; ok {
		return ti.name
	}
	if ti, ok := structural[t]; ok {
		return ti.name
	}
	return fmt.Sprintf("Tag(0x%04X)", uint16(t))
}

// MarshalText encodes t by name.
func (t Tag) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}
