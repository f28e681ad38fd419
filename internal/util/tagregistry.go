// Package util provides helpers shared by the de-identification packages.
package util

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom/pkg/tag"
)

// TagCategory groups the identifying tags offered as keyword suggestions.
type TagCategory int

const (
	// CategoryPatient covers patient identity and demographics.
	CategoryPatient TagCategory = iota
	// CategoryStudy covers study-level identifiers and staff names.
	CategoryStudy
	// CategorySeries covers series-level descriptions and equipment.
	CategorySeries
	// CategoryDate covers date and time attributes.
	CategoryDate
)

// String returns the string representation of a TagCategory.
func (c TagCategory) String() string {
	switch c {
	case CategoryPatient:
		return "Patient"
	case CategoryStudy:
		return "Study"
	case CategorySeries:
		return "Series"
	case CategoryDate:
		return "Date"
	default:
		return "Unknown"
	}
}

// TagInfo describes a tag accepted by ParseTag.
type TagInfo struct {
	Name     string
	Tag      tag.Tag
	Category TagCategory
}

// keywordRegistry maps lowercase keywords to the identifying tags users
// commonly list in a clear-list. Any keyword known to the DICOM dictionary is
// accepted by ParseTag; this table only drives the "did you mean" suggestion.
var keywordRegistry = map[string]TagInfo{
	"patientname":         {Name: "PatientName", Tag: tag.PatientName, Category: CategoryPatient},
	"patientid":           {Name: "PatientID", Tag: tag.PatientID, Category: CategoryPatient},
	"patientbirthdate":    {Name: "PatientBirthDate", Tag: tag.PatientBirthDate, Category: CategoryPatient},
	"patientsex":          {Name: "PatientSex", Tag: tag.PatientSex, Category: CategoryPatient},
	"patientage":          {Name: "PatientAge", Tag: tag.PatientAge, Category: CategoryPatient},
	"patientweight":       {Name: "PatientWeight", Tag: tag.PatientWeight, Category: CategoryPatient},
	"patientaddress":      {Name: "PatientAddress", Tag: tag.PatientAddress, Category: CategoryPatient},
	"otherpatientnames":   {Name: "OtherPatientNames", Tag: tag.OtherPatientNames, Category: CategoryPatient},
	"patientcomments":     {Name: "PatientComments", Tag: tag.PatientComments, Category: CategoryPatient},
	"issuerofpatientid":   {Name: "IssuerOfPatientID", Tag: tag.IssuerOfPatientID, Category: CategoryPatient},

	"studyid":                       {Name: "StudyID", Tag: tag.StudyID, Category: CategoryStudy},
	"studydescription":              {Name: "StudyDescription", Tag: tag.StudyDescription, Category: CategoryStudy},
	"accessionnumber":               {Name: "AccessionNumber", Tag: tag.AccessionNumber, Category: CategoryStudy},
	"institutionname":               {Name: "InstitutionName", Tag: tag.InstitutionName, Category: CategoryStudy},
	"institutionaddress":            {Name: "InstitutionAddress", Tag: tag.InstitutionAddress, Category: CategoryStudy},
	"institutionaldepartmentname":   {Name: "InstitutionalDepartmentName", Tag: tag.InstitutionalDepartmentName, Category: CategoryStudy},
	"referringphysicianname":        {Name: "ReferringPhysicianName", Tag: tag.ReferringPhysicianName, Category: CategoryStudy},
	"performingphysicianname":       {Name: "PerformingPhysicianName", Tag: tag.PerformingPhysicianName, Category: CategoryStudy},
	"operatorsname":                 {Name: "OperatorsName", Tag: tag.OperatorsName, Category: CategoryStudy},
	"requestedproceduredescription": {Name: "RequestedProcedureDescription", Tag: tag.RequestedProcedureDescription, Category: CategoryStudy},

	"seriesdescription":     {Name: "SeriesDescription", Tag: tag.SeriesDescription, Category: CategorySeries},
	"stationname":           {Name: "StationName", Tag: tag.StationName, Category: CategorySeries},
	"manufacturer":          {Name: "Manufacturer", Tag: tag.Manufacturer, Category: CategorySeries},
	"manufacturermodelname": {Name: "ManufacturerModelName", Tag: tag.ManufacturerModelName, Category: CategorySeries},
	"deviceserialnumber":    {Name: "DeviceSerialNumber", Tag: tag.DeviceSerialNumber, Category: CategorySeries},
	"softwareversions":      {Name: "SoftwareVersions", Tag: tag.SoftwareVersions, Category: CategorySeries},

	"studydate":            {Name: "StudyDate", Tag: tag.StudyDate, Category: CategoryDate},
	"seriesdate":           {Name: "SeriesDate", Tag: tag.SeriesDate, Category: CategoryDate},
	"acquisitiondate":      {Name: "AcquisitionDate", Tag: tag.AcquisitionDate, Category: CategoryDate},
	"contentdate":          {Name: "ContentDate", Tag: tag.ContentDate, Category: CategoryDate},
	"instancecreationdate": {Name: "InstanceCreationDate", Tag: tag.InstanceCreationDate, Category: CategoryDate},
	"studytime":            {Name: "StudyTime", Tag: tag.StudyTime, Category: CategoryDate},
	"seriestime":           {Name: "SeriesTime", Tag: tag.SeriesTime, Category: CategoryDate},
}

// numericTag matches "(0010, 0010)", "(0010,0010)", "0010,0010" and "00100010".
var numericTag = regexp.MustCompile(`^\(?\s*([0-9a-fA-F]{4})\s*,?\s*([0-9a-fA-F]{4})\s*\)?$`)

// ParseTag resolves a tag identifier. It accepts the parenthesised hex form
// used by the default clear-list, a bare 8-digit hex form, or a dictionary
// keyword such as "PatientName" (case-insensitive). Unknown keywords return an
// error with a suggestion for the closest identifying tag.
func ParseTag(id string) (tag.Tag, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return tag.Tag{}, fmt.Errorf("empty tag identifier")
	}

	if m := numericTag.FindStringSubmatch(trimmed); m != nil {
		group, _ := strconv.ParseUint(m[1], 16, 16)
		elem, _ := strconv.ParseUint(m[2], 16, 16)
		return tag.Tag{Group: uint16(group), Element: uint16(elem)}, nil
	}

	info, err := GetTagByName(trimmed)
	if err != nil {
		return tag.Tag{}, err
	}
	return info.Tag, nil
}

// ParseTags resolves every identifier, reporting the first failure with its position.
func ParseTags(ids []string) ([]tag.Tag, error) {
	tags := make([]tag.Tag, 0, len(ids))
	for i, id := range ids {
		t, err := ParseTag(id)
		if err != nil {
			return nil, fmt.Errorf("tag %d: %w", i, err)
		}
		tags = append(tags, t)
	}
	return tags, nil
}

// FormatTag renders t the way the default clear-list spells it: "(0010, 0010)".
func FormatTag(t tag.Tag) string {
	return fmt.Sprintf("(%04x, %04x)", t.Group, t.Element)
}

// GetTagByName returns TagInfo for a given keyword.
// The lookup is case-insensitive. Keywords outside the registry are looked up
// in the DICOM dictionary. If the keyword is unknown, an error is returned
// with a suggestion for the closest registered keyword (Levenshtein distance).
func GetTagByName(name string) (TagInfo, error) {
	normalizedName := strings.ToLower(strings.TrimSpace(name))

	if info, ok := keywordRegistry[normalizedName]; ok {
		return info, nil
	}

	if info, err := tag.FindByName(strings.TrimSpace(name)); err == nil {
		return TagInfo{Name: info.Keyword, Tag: info.Tag, Category: categoryOf(info.Tag)}, nil
	}

	if suggestion, ok := findClosestTag(normalizedName); ok {
		return TagInfo{}, fmt.Errorf("unknown tag %q, did you mean %q (%s)?", name, suggestion.Name, suggestion.Category)
	}

	return TagInfo{}, fmt.Errorf("unknown tag %q", name)
}

// DescribeTag renders t with its keyword and category when the dictionary
// knows it, for example "PatientName (0010, 0010) [Patient]".
func DescribeTag(t tag.Tag) string {
	info, err := tag.Find(t)
	if err != nil {
		return FormatTag(t)
	}
	return fmt.Sprintf("%s %s [%s]", info.Keyword, FormatTag(t), categoryOf(t))
}

func categoryOf(t tag.Tag) TagCategory {
	if info, err := tag.Find(t); err == nil {
		for _, vr := range info.VRs {
			switch vr {
			case "DA", "DT", "TM":
				return CategoryDate
			}
		}
	}
	switch t.Group {
	case 0x0010:
		return CategoryPatient
	case 0x0020, 0x0032:
		return CategoryStudy
	default:
		return CategorySeries
	}
}

// findClosestTag finds the closest registered keyword using Levenshtein
// distance. It reports false when nothing is within a distance of 5.
func findClosestTag(input string) (TagInfo, bool) {
	const maxDistance = 5
	bestDistance := maxDistance + 1
	var best TagInfo

	for key, info := range keywordRegistry {
		distance := levenshteinDistance(input, key)
		if distance < bestDistance || (distance == bestDistance && info.Name < best.Name) {
			bestDistance = distance
			best = info
		}
	}

	return best, bestDistance <= maxDistance
}

// levenshteinDistance calculates the minimum number of single-character
// edits required to change one string into the other.
func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}
