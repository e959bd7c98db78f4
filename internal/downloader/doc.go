// Package downloader fetches coin icons with a bounded worker pool.
//
// Each coin identifier becomes one task: GET
// {base}/{revision}/icons/{identifier}.png and store the body under
// {prefix}{identifier}.png. At most Options.Workers tasks are in flight;
// the rest wait in the queue.
//
// # Usage
//
//	tasks := downloader.IconTasks(baseURL, revision, "coin-icons/", names)
//	result, err := downloader.Download(ctx, client, store, tasks, downloader.Options{
//	    Workers:     4,
//	    TaskTimeout: 10 * time.Second,
//	})
//
// # Failure
//
// Every task runs under its own timeout. A failed task is logged with its
// coin and returned as an [*IconError]. The first failure observed stops
// dispatching and is returned at once. Tasks already in flight are not
// cancelled: they finish or time out on their own and may still write their
// icon. Nothing is retried and no partial result is reported.
package downloader
