// SPDX-License-Identifier: MPL-2.0

package metadata

// Table identifiers from ECMA-335 Partition II, section 22.
const (
	tableModule                 tableID = 0x00
	tableTypeRef                tableID = 0x01
	tableTypeDef                tableID = 0x02
	tableFieldPtr               tableID = 0x03
	tableField                  tableID = 0x04
	tableMethodPtr              tableID = 0x05
	tableMethodDef              tableID = 0x06
	tableParamPtr               tableID = 0x07
	tableParam                  tableID = 0x08
	tableInterfaceImpl          tableID = 0x09
	tableMemberRef              tableID = 0x0A
	tableConstant               tableID = 0x0B
	tableCustomAttribute        tableID = 0x0C
	tableFieldMarshal           tableID = 0x0D
	tableDeclSecurity           tableID = 0x0E
	tableClassLayout            tableID = 0x0F
	tableFieldLayout            tableID = 0x10
	tableStandAloneSig          tableID = 0x11
	tableEventMap               tableID = 0x12
	tableEventPtr               tableID = 0x13
	tableEvent                  tableID = 0x14
	tablePropertyMap            tableID = 0x15
	tablePropertyPtr            tableID = 0x16
	tableProperty               tableID = 0x17
	tableMethodSemantics        tableID = 0x18
	tableMethodImpl             tableID = 0x19
	tableModuleRef              tableID = 0x1A
	tableTypeSpec               tableID = 0x1B
	tableImplMap                tableID = 0x1C
	tableFieldRVA               tableID = 0x1D
	tableEncLog                 tableID = 0x1E
	tableEncMap                 tableID = 0x1F
	tableAssembly               tableID = 0x20
	tableAssemblyProcessor      tableID = 0x21
	tableAssemblyOS             tableID = 0x22
	tableAssemblyRef            tableID = 0x23
	tableAssemblyRefProcessor   tableID = 0x24
	tableAssemblyRefOS          tableID = 0x25
	tableFile                   tableID = 0x26
	tableExportedType           tableID = 0x27
	tableManifestResource       tableID = 0x28
	tableNestedClass            tableID = 0x29
	tableGenericParam           tableID = 0x2A
	tableMethodSpec             tableID = 0x2B
	tableGenericParamConstraint tableID = 0x2C

	// numTables is the number of table slots this package understands.
	numTables = 0x2D

	// tableNone marks an unused tag in a coded index.
	tableNone tableID = 0xFF
)

// Column kinds.
const (
	colU16 columnKind = iota
	colU32
	colString
	colGUID
	colBlob
	colTable
	colCoded
)

// Heap size flags of the table stream header.
const (
	heapStringsWide = 0x01
	heapGUIDWide    = 0x02
	heapBlobWide    = 0x04
	heapExtraData   = 0x40
)

type (
	tableID    uint8
	columnKind uint8

	// column describes one column of a metadata table.
	column struct {
		kind  columnKind
		table tableID     // target of colTable
		coded *codedIndex // target set of colCoded
	}

	// codedIndex is a tagged union of table references (II.24.2.6).
	codedIndex struct {
		bits   uint
		tables []tableID
	}

	// indexSizes carries the widths needed to size every column.
	indexSizes struct {
		heapSizes uint8
		rows      [numTables]uint32
	}
)

var (
	ciTypeDefOrRef       = &codedIndex{bits: 2, tables: []tableID{tableTypeDef, tableTypeRef, tableTypeSpec}}
	ciHasConstant        = &codedIndex{bits: 2, tables: []tableID{tableField, tableParam, tableProperty}}
	ciHasCustomAttribute = &codedIndex{bits: 5, tables: []tableID{
		tableMethodDef, tableField, tableTypeRef, tableTypeDef, tableParam,
		tableInterfaceImpl, tableMemberRef, tableModule, tableDeclSecurity,
		tableProperty, tableEvent, tableStandAloneSig, tableModuleRef,
		tableTypeSpec, tableAssembly, tableAssemblyRef, tableFile,
		tableExportedType, tableManifestResource, tableGenericParam,
		tableGenericParamConstraint, tableMethodSpec,
	}}
	ciHasFieldMarshal  = &codedIndex{bits: 1, tables: []tableID{tableField, tableParam}}
	ciHasDeclSecurity  = &codedIndex{bits: 2, tables: []tableID{tableTypeDef, tableMethodDef, tableAssembly}}
	ciMemberRefParent  = &codedIndex{bits: 3, tables: []tableID{tableTypeDef, tableTypeRef, tableModuleRef, tableMethodDef, tableTypeSpec}}
	ciHasSemantics     = &codedIndex{bits: 1, tables: []tableID{tableEvent, tableProperty}}
	ciMethodDefOrRef   = &codedIndex{bits: 1, tables: []tableID{tableMethodDef, tableMemberRef}}
	ciMemberForwarded  = &codedIndex{bits: 1, tables: []tableID{tableField, tableMethodDef}}
	ciImplementation   = &codedIndex{bits: 2, tables: []tableID{tableFile, tableAssemblyRef, tableExportedType}}
	ciCustomAttribType = &codedIndex{bits: 3, tables: []tableID{tableNone, tableNone, tableMethodDef, tableMemberRef, tableNone}}
	ciResolutionScope  = &codedIndex{bits: 2, tables: []tableID{tableModule, tableModuleRef, tableAssemblyRef, tableTypeRef}}
	ciTypeOrMethodDef  = &codedIndex{bits: 1, tables: []tableID{tableTypeDef, tableMethodDef}}
)

func u16() column { return column{kind: colU16} }
func u32() column { return column{kind: colU32} }
func str() column { return column{kind: colString} }
func guid() column { return column{kind: colGUID} }
func blob() column { return column{kind: colBlob} }
func idx(t tableID) column { return column{kind: colTable, table: t} }
func coded(ci *codedIndex) column { return column{kind: colCoded, coded: ci} }

// schema lists the columns of every table, indexed by tableID.
var schema = [numTables][]column{
	tableModule:                 {u16(), str(), guid(), guid(), guid()},
	tableTypeRef:                {coded(ciResolutionScope), str(), str()},
	tableTypeDef:                {u32(), str(), str(), coded(ciTypeDefOrRef), idx(tableField), idx(tableMethodDef)},
	tableFieldPtr:               {idx(tableField)},
	tableField:                  {u16(), str(), blob()},
	tableMethodPtr:              {idx(tableMethodDef)},
	tableMethodDef:              {u32(), u16(), u16(), str(), blob(), idx(tableParam)},
	tableParamPtr:               {idx(tableParam)},
	tableParam:                  {u16(), u16(), str()},
	tableInterfaceImpl:          {idx(tableTypeDef), coded(ciTypeDefOrRef)},
	tableMemberRef:              {coded(ciMemberRefParent), str(), blob()},
	tableConstant:               {u16(), coded(ciHasConstant), blob()},
	tableCustomAttribute:        {coded(ciHasCustomAttribute), coded(ciCustomAttribType), blob()},
	tableFieldMarshal:           {coded(ciHasFieldMarshal), blob()},
	tableDeclSecurity:           {u16(), coded(ciHasDeclSecurity), blob()},
	tableClassLayout:            {u16(), u32(), idx(tableTypeDef)},
	tableFieldLayout:            {u32(), idx(tableField)},
	tableStandAloneSig:          {blob()},
	tableEventMap:               {idx(tableTypeDef), idx(tableEvent)},
	tableEventPtr:               {idx(tableEvent)},
	tableEvent:                  {u16(), str(), coded(ciTypeDefOrRef)},
	tablePropertyMap:            {idx(tableTypeDef), idx(tableProperty)},
	tablePropertyPtr:            {idx(tableProperty)},
	tableProperty:               {u16(), str(), blob()},
	tableMethodSemantics:        {u16(), idx(tableMethodDef), coded(ciHasSemantics)},
	tableMethodImpl:             {idx(tableTypeDef), coded(ciMethodDefOrRef), coded(ciMethodDefOrRef)},
	tableModuleRef:              {str()},
	tableTypeSpec:               {blob()},
	tableImplMap:                {u16(), coded(ciMemberForwarded), str(), idx(tableModuleRef)},
	tableFieldRVA:               {u32(), idx(tableField)},
	tableEncLog:                 {u32(), u32()},
	tableEncMap:                 {u32()},
	tableAssembly:               {u32(), u16(), u16(), u16(), u16(), u32(), blob(), str(), str()},
	tableAssemblyProcessor:      {u32()},
	tableAssemblyOS:             {u32(), u32(), u32()},
	tableAssemblyRef:            {u16(), u16(), u16(), u16(), u32(), blob(), str(), str(), blob()},
	tableAssemblyRefProcessor:   {u32(), idx(tableAssemblyRef)},
	tableAssemblyRefOS:          {u32(), u32(), u32(), idx(tableAssemblyRef)},
	tableFile:                   {u32(), str(), blob()},
	tableExportedType:           {u32(), u32(), str(), str(), coded(ciImplementation)},
	tableManifestResource:       {u32(), u32(), str(), coded(ciImplementation)},
	tableNestedClass:            {idx(tableTypeDef), idx(tableTypeDef)},
	tableGenericParam:           {u16(), u16(), coded(ciTypeOrMethodDef), str()},
	tableMethodSpec:             {coded(ciMethodDefOrRef), blob()},
	tableGenericParamConstraint: {idx(tableGenericParam), coded(ciTypeDefOrRef)},
}

// Column positions used by this package.
const (
	colModuleName = 1

	colAssemblyHashAlg = 0
	colAssemblyMajor   = 1
	colAssemblyFlags   = 5
	colAssemblyKey     = 6
	colAssemblyName    = 7
	colAssemblyCulture = 8

	colRefMajor   = 0
	colRefFlags   = 4
	colRefKey     = 5
	colRefName    = 6
	colRefCulture = 7
	colRefHash    = 8
)

// size returns the encoded width of column c in bytes.
func (s *indexSizes) size(c column) int {
	switch c.kind {
	case colU16:
		return 2
	case colU32:
		return 4
	case colString:
		return s.heapWidth(heapStringsWide)
	case colGUID:
		return s.heapWidth(heapGUIDWide)
	case colBlob:
		return s.heapWidth(heapBlobWide)
	case colTable:
		if s.rows[c.table] < 1<<16 {
			return 2
		}
		return 4
	case colCoded:
		var maxRows uint32
		for _, t := range c.coded.tables {
			if t != tableNone && s.rows[t] > maxRows {
				maxRows = s.rows[t]
			}
		}
		if maxRows < 1<<(16-c.coded.bits) {
			return 2
		}
		return 4
	}
	return 0
}

func (s *indexSizes) heapWidth(flag uint8) int {
	if s.heapSizes&flag != 0 {
		return 4
	}
	return 2
}

// rowSize returns the encoded width of one row of table t.
func (s *indexSizes) rowSize(t tableID) int {
	n := 0
	for _, c := range schema[t] {
		n += s.size(c)
	}
	return n
}

// tag returns the coded-index tag of table t within ci.
func (ci *codedIndex) tag(t tableID) (uint32, bool) {
	for i, candidate := range ci.tables {
		if candidate == t {
			return uint32(i), true
		}
	}
	return 0, false
}

// encode builds a coded index value pointing at 1-based row of table t.
func (ci *codedIndex) encode(t tableID, row uint32) uint32 {
	tag, _ := ci.tag(t)
	return row<<ci.bits | tag
}
