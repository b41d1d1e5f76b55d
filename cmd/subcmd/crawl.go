package subcmd

import (
	"context"
	"fmt"
	"io"
)

// Crawl refreshes the cached catalog from the upstream once and writes the count
// of cached repositories to 'w'
func Crawl(w io.Writer) error {
	svc, err := initServices(context.Background())
	if err != nil {
		return err
	}
	defer svc.store.Close()
	cnt, err := svc.crawler.Refresh(context.Background())
	if err != nil {
		return fmt.Errorf("error crawling the catalog: %w", err)
	}
	fmt.Fprintf(w, "cached %d repositories\n", cnt)
	return nil
}
