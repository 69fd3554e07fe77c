// Package repeatwatch detects repeated utterances in a conversation.
//
// Each final speech-recognition result is cleaned of stutter, compared with
// the recent history and classified as new, occasional or frequent.
//
// Quick start:
//
//	d, err := repeatwatch.New(repeatwatch.WithStoreDir("/var/lib/repeatwatch"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer d.Close()
//
//	d.OnRepeat(func(r repeatwatch.Record) { fmt.Println("repeat:", r.Content) })
//	rec, _ := d.OnUtterance("お母さんはどこ", 0.92, true)
//	fmt.Println(rec.Category)
//
// A Detector is safe for concurrent use; utterances are processed one at a
// time in arrival order.
package repeatwatch
