package search

import (
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
)

const hospitalType = "hospital"

func BuildIndexMapping() *mapping.IndexMappingImpl {
	idx := mapping.NewIndexMapping()
	idx.DefaultAnalyzer = standard.Name
	idx.TypeField = "type"

	text := mapping.NewTextFieldMapping()
	text.Store = true
	text.Analyzer = standard.Name
	text.IncludeInAll = true

	// codes are matched exactly
	kw := mapping.NewTextFieldMapping()
	kw.Store = true
	kw.Analyzer = keyword.Name

	num := mapping.NewNumericFieldMapping()
	num.Store = true

	geo := mapping.NewGeoPointFieldMapping()

	hospital := mapping.NewDocumentMapping()
	hospital.Dynamic = false
	hospital.AddFieldMappingsAt("name", text)
	hospital.AddFieldMappingsAt("code", kw)
	hospital.AddFieldMappingsAt("lat", num)
	hospital.AddFieldMappingsAt("lng", num)
	hospital.AddFieldMappingsAt("location", geo)
	idx.AddDocumentMapping(hospitalType, hospital)

	def := mapping.NewDocumentMapping()
	def.Dynamic = false
	idx.DefaultMapping = def
	return idx
}
