package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/user/aiwf/internal/catalog"
	"github.com/user/aiwf/internal/query"
	"github.com/user/aiwf/internal/types"
)

type queryOptions struct {
	text    string
	filters []string
	since   string
	until   string
	sort    string
	order   string
	limit   int
	offset  int
	fields  string
}

func newQueryCommand(a *app) *cobra.Command {
	o := &queryOptions{}
	cmd := &cobra.Command{
		Use:   "query <kind>",
		Short: "Search a catalog",
		Long: `Search a catalog of records.

Stages run in a fixed order: text match, filters, time range, sort,
offset and limit, then field projection. Run "aiwf catalogs" for the
list of kinds.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := o.build()
			if err != nil {
				return usageError(err)
			}
			records, err := a.catalog.Load(args[0])
			if err != nil {
				return err
			}
			return a.print.list(query.Run(records, q), q.Fields)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.text, "q", "", "case-insensitive text match over the whole record")
	f.StringArrayVar(&o.filters, "filter", nil, "field filter as key=value (repeatable)")
	f.StringVar(&o.since, "since", "", "keep records at or after this time")
	f.StringVar(&o.until, "until", "", "keep records at or before this time")
	f.StringVar(&o.sort, "sort", "", "field to sort by")
	f.StringVar(&o.order, "order", "asc", "sort order (asc|desc)")
	f.IntVar(&o.limit, "limit", 0, "maximum records to return (0 for all)")
	f.IntVar(&o.offset, "offset", 0, "records to skip")
	f.StringVar(&o.fields, "fields", "", "comma-separated fields to keep")
	return cmd
}

func (o *queryOptions) build() (query.Query, error) {
	q := query.Query{
		Text:      o.text,
		SortKey:   o.sort,
		SortOrder: query.Order(o.order),
		Limit:     o.limit,
		Offset:    o.offset,
		Fields:    query.ParseFields(o.fields),
	}
	for _, raw := range o.filters {
		f, err := query.ParseFilter(raw)
		if err != nil {
			return q, err
		}
		q.Filters = append(q.Filters, f)
	}
	var err error
	if q.Since, err = parseBound("since", o.since); err != nil {
		return q, err
	}
	if q.Until, err = parseBound("until", o.until); err != nil {
		return q, err
	}
	return q, q.Validate()
}

func parseBound(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := query.ParseTime(value)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return &t, nil
}

func newFetchCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <kind:id>",
		Short: "Show one record by reference",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.catalog.FetchRef(args[0])
			if err != nil {
				return err
			}
			return a.print.record(doc)
		},
	}
}

func newCatalogsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "catalogs",
		Short: "List queryable catalogs",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds := catalog.Kinds()
			docs := make([]types.Document, 0, len(kinds))
			for _, kind := range kinds {
				field, err := catalog.IDField(kind)
				if err != nil {
					return err
				}
				docs = append(docs, types.Document{"kind": kind, "id_field": field})
			}
			return a.print.list(docs, []string{"kind", "id_field"})
		},
	}
}
