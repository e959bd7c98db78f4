// Package progress reports icon download progress.
//
// The reporter counts icons in flight, completed and failed, and the bytes
// written. When enabled it renders a progress bar on the output; the final
// summary is always available through [Reporter.Summary].
//
// # Usage
//
//	reporter := progress.NewReporter(progress.Options{
//	    Total:   len(names),
//	    Workers: 4,
//	    Enabled: progress.IsTerminal(os.Stderr),
//	})
//
//	reporter.Start()
//	defer reporter.Stop()
//
//	reporter.IconStarted()
//	reporter.IconCompleted(int64(len(body)))
//
// # Output Format
//
//	icons(4 workers)  42% |████████          | (412/981)
//	981 icons, 14 MiB in 8s
package progress
