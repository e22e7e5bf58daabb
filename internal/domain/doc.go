// Package domain models INMET historical weather data for a single station.
//
// # Data Source
//
// INMET (Instituto Nacional de Meteorologia, Brazil) publishes yearly archives
// of automatic-station measurements at https://portal.inmet.gov.br/dadoshistoricos.
// The index page links one ZIP per year, labelled "ANO <year> (AUTOMÁTICA)".
// Some year links point at a listing page instead of the archive itself, so
// retrieval has to branch on the response content type.
//
// # Archive Conventions
//
// Each ZIP contains one CSV per station. Member names encode region, state,
// station code, station name and date range, e.g.
//
//	INMET_SE_SP_A740_SAO LUIZ DO PARAITINGA_01-01-2020_A_31-12-2020.CSV
//
// Exact spacing, padding and accenting of the station name varies between
// years, which is why station matching goes through [Slugify] and substring
// containment rather than exact comparison.
//
// # Schema Drift
//
// The CSV layout drifted across releases: encodings (latin-1 in older years,
// UTF-8 with or without BOM in newer ones), delimiters (semicolon or comma),
// column headers ("DATA (YYYY-MM-DD)", "Data Medicao", "DT_MEDICAO", ...),
// and date formats (day-first or ISO, with or without a separate hour column).
// [Decode] tries an ordered list of (encoding, delimiter) strategies and
// [Normalize] reconciles whatever columns a year happens to carry into the
// fixed eight-column schema of [Record]. A measurement with no recognizable
// source column comes out as all nulls, never as a missing column.
//
// # Values
//
// Measurements are nullable: an absent or unparseable token is nil, never
// coerced to zero. INMET writes decimal commas in most years; those are
// accepted. The combined dataset keeps one row per distinct timestamp,
// first occurrence after a stable chronological sort winning.
package domain
