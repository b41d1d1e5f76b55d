package subcmd

import (
	"context"
	"fmt"
	"io"

	"github.com/adotmob/regbrowse/impl/config"
)

// List writes one page of the cached catalog to 'w', one repository per line
func List(w io.Writer) error {
	svc, err := initServices(context.Background())
	if err != nil {
		return err
	}
	defer svc.store.Close()
	entries, err := svc.pager.GetPage(context.Background(), config.GetListConfig().Page, config.GetPageSize())
	if err != nil {
		return err
	}
	for _, entry := range entries {
		fmt.Fprintln(w, entry)
	}
	return nil
}
