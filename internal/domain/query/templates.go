package query

import (
	"strings"

	"github.com/kailas-cloud/topicdex/internal/db"
	"github.com/kailas-cloud/topicdex/internal/domain/region"
)

var paging = []string{ArgStart, ArgRows}

var templates = []Template{
	{
		Kind: OpenAccess, Route: "getOpenAccess", Target: TargetCorpus, CollArg: ArgCorpusCollection,
		Required: []string{ArgCorpusCollection, ArgOpenAccess}, Optional: paging, Paginated: true,
		render: func(a Args, _ *region.Table) *db.QueryBuilder {
			return db.NewQuery("openaccess:" + term(a.Get(ArgOpenAccess)))
		},
	},
	{
		Kind: MetadataFields, Route: "getCorpusMetadataFields", Target: TargetRegistry, CollArg: ArgCorpusCollection,
		Required: []string{ArgCorpusCollection},
		render: func(a Args, _ *region.Table) *db.QueryBuilder {
			c := strings.ToLower(a.Get(ArgCorpusCollection))
			return db.NewQuery("corpus_name:" + term(c)).Fields("fields").Rows(1)
		},
	},
	{
		Kind: DocCount, Route: "getNrDocsColl", Target: TargetAny, CollArg: ArgCollection,
		Required: []string{ArgCollection},
		render: func(_ Args, _ *region.Table) *db.QueryBuilder {
			return db.NewQuery(region.MatchAll).Rows(0)
		},
	},
	{
		Kind: ByYear, Route: "getDocsByYear", Target: TargetCorpus, CollArg: ArgCorpusCollection,
		Required: []string{ArgCorpusCollection, ArgYear}, Optional: paging, Paginated: true,
		render: func(a Args, _ *region.Table) *db.QueryBuilder {
			return db.NewQuery(yearRange(a.Get(ArgYear)))
		},
	},
	{
		Kind: ByRegion, Route: "getDocsByContinent", Target: TargetCorpus, CollArg: ArgCorpusCollection,
		Required: []string{ArgCorpusCollection, ArgContinent}, Optional: paging, Paginated: true,
		render: func(a Args, regions *region.Table) *db.QueryBuilder {
			if regions == nil {
				return db.NewQuery(region.MatchAll)
			}
			return db.NewQuery(regions.Query(a.Get(ArgContinent)))
		},
	},
	{
		Kind: ByCity, Route: "getDocsByCity", Target: TargetCorpus, CollArg: ArgCorpusCollection,
		Required: []string{ArgCorpusCollection, ArgCity}, Optional: paging, Paginated: true,
		render: func(a Args, _ *region.Table) *db.QueryBuilder {
			return db.NewQuery(`affiliation_city:"` + phrase(a.Get(ArgCity)) + `"`)
		},
	},
	{
		Kind: ByInstitution, Route: "getDocsByInstitution", Target: TargetCorpus, CollArg: ArgCorpusCollection,
		Required: []string{ArgCorpusCollection, ArgInstitution}, Optional: paging, Paginated: true,
		render: func(a Args, _ *region.Table) *db.QueryBuilder {
			return db.NewQuery(`affilname:"` + phrase(a.Get(ArgInstitution)) + `"`)
		},
	},
	{
		Kind: FreeText, Route: "getDocsWithString", Target: TargetCorpus, CollArg: ArgCorpusCollection,
		Required: []string{ArgCorpusCollection, ArgString}, Optional: paging, Paginated: true,
		render: func(a Args, _ *region.Table) *db.QueryBuilder {
			return db.NewQuery(`title:"` + phrase(a.Get(ArgString)) + `"`)
		},
	},
	{
		Kind: MetadataByID, Route: "getMetadataDocById", Target: TargetCorpus, CollArg: ArgCorpusCollection,
		Required: []string{ArgCorpusCollection, ArgDocID},
		render: func(a Args, _ *region.Table) *db.QueryBuilder {
			return db.NewQuery("id:" + term(a.Get(ArgDocID))).Rows(1)
		},
	},
	{
		Kind: TopicLabels, Route: "getTopicsLabels", Target: TargetModel, CollArg: ArgModelCollection,
		Required: []string{ArgModelCollection}, Optional: paging, Paginated: true,
		render: func(_ Args, _ *region.Table) *db.QueryBuilder {
			return db.NewQuery(region.MatchAll).Fields("tpc_labels")
		},
	},
	{
		Kind: TopicByLabel, Route: "getTopicIdByLabel", Target: TargetModel, CollArg: ArgModelCollection,
		Required: []string{ArgModelCollection, ArgTopicLabel},
		render: func(a Args, _ *region.Table) *db.QueryBuilder {
			return db.NewQuery(`tpc_labels:"` + phrase(a.Get(ArgTopicLabel)) + `"`).Fields("id").Start(0).Rows(1)
		},
	},
	{
		Kind: ModelInfo, Route: "getModelInfo", Target: TargetModel, CollArg: ArgModelCollection,
		Required: []string{ArgModelCollection}, Optional: paging, Paginated: true,
		render: func(_ Args, _ *region.Table) *db.QueryBuilder {
			return db.NewQuery(region.MatchAll).Fields(
				"id", "betas", "alphas", "topic_entropy", "topic_coherence",
				"ndocs_active", "tpc_descriptions", "tpc_labels", "coords",
			)
		},
	},
	{
		Kind: TopicBetas, Route: "getBetasTopicById", Target: TargetModel, CollArg: ArgModelCollection,
		Required: []string{ArgModelCollection, ArgTopicID},
		render: func(a Args, _ *region.Table) *db.QueryBuilder {
			return db.NewQuery("id:t" + term(a.Get(ArgTopicID))).Fields("betas").Rows(1)
		},
	},
	{
		Kind: CitationBand, Route: "getDocsByCitations", Target: TargetCorpus, CollArg: ArgCorpusCollection,
		Required: []string{ArgCorpusCollection, ArgLowerLimit, ArgUpperLimit}, Optional: paging, Paginated: true,
		render: func(a Args, _ *region.Table) *db.QueryBuilder {
			return db.NewQuery("citedby_count:[" + a.Get(ArgLowerLimit) + " TO " + a.Get(ArgUpperLimit) + "]")
		},
	},
	{
		Kind: ByFunder, Route: "getDocsByFundSponsor", Target: TargetCorpus, CollArg: ArgCorpusCollection,
		Required: []string{ArgCorpusCollection, ArgFundSponsor}, Optional: paging, Paginated: true,
		render: func(a Args, _ *region.Table) *db.QueryBuilder {
			return db.NewQuery(`fund_sponsor:"` + phrase(a.Get(ArgFundSponsor)) + `"`)
		},
	},
	{
		Kind: SimilarityPairs, Route: "getPairsOfDocsWithHighSim", Target: TargetCorpus, CollArg: ArgCorpusCollection,
		Required: []string{
			ArgCorpusCollection, ArgModelName, ArgLowerLimit, ArgUpperLimit, ArgYear, ArgNumRecords,
		},
		Optional: paging, Paginated: true,
		render: func(a Args, _ *region.Table) *db.QueryBuilder {
			m := strings.ToLower(a.Get(ArgModelName))
			q := `{!vs f=sim_` + m + ` vector="` + a.Get(ArgLowerLimit) + "," + a.Get(ArgUpperLimit) + `"}`
			return db.NewQuery(q).
				Filter(yearRange(a.Get(ArgYear))).
				Fields("id", "sim_"+m, "score")
		},
	},
	{
		Kind: SimilarToText, Route: "getDocsSimilarToFreeText", Target: TargetCorpus, CollArg: ArgCorpusCollection,
		Required: []string{ArgCorpusCollection, ArgModelName, ArgTextToInfer}, Optional: paging, Paginated: true,
		render: func(a Args, _ *region.Table) *db.QueryBuilder {
			m := strings.ToLower(a.Get(ArgModelName))
			q := `{!vd f=doctpc_` + m + ` vector="` + a.Get(ArgThetas) + `"}`
			return db.NewQuery(q).Fields("id", "score")
		},
	},
	{
		Kind: Lemmas, Route: "getLemmasDocById", Target: TargetCorpus, CollArg: ArgCorpusCollection,
		Required: []string{ArgCorpusCollection, ArgDocID},
		render: func(a Args, _ *region.Table) *db.QueryBuilder {
			return db.NewQuery("id:" + term(a.Get(ArgDocID))).Fields("all_lemmas").Rows(1)
		},
	},
	{
		Kind: ThetasAndDate, Route: "getThetasAndDateAllDocs", Target: TargetCorpus, CollArg: ArgCorpusCollection,
		Required: []string{ArgCorpusCollection, ArgModelName}, Optional: paging, Paginated: true,
		render: func(a Args, _ *region.Table) *db.QueryBuilder {
			return db.NewQuery(region.MatchAll).Fields("id", "date", "doctpc_"+strings.ToLower(a.Get(ArgModelName)))
		},
	},
	{
		Kind: WordBeta, Route: "getBetasByWordAndTopicId", Target: TargetModel, CollArg: ArgModelName,
		Required: []string{ArgModelName, ArgTpcID, ArgWord},
		render: func(a Args, _ *region.Table) *db.QueryBuilder {
			return db.NewQuery("id:t" + term(a.Get(ArgTpcID))).Fields("betas").Rows(1)
		},
	},
}
