// Package crawler walks the upstream registry catalog one page at a time and
// publishes the complete repository list to the cache store. A crawl is
// all-or-nothing: any failure aborts it and the previously published catalog stays
// in place.
package crawler
