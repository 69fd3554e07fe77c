package repeatwatch_test

import (
	"fmt"
	"log"
	"time"

	"github.com/crimson-sun/repeatwatch/pkg/repeatwatch"
)

func Example() {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	d, err := repeatwatch.New(repeatwatch.WithClock(func() time.Time { return now }))
	if err != nil {
		log.Fatal(err)
	}
	defer d.Close()

	first, _ := d.OnUtterance("お母さんはどこ", 0.92, true)
	now = now.Add(30 * time.Second)
	second, _ := d.OnUtterance("お母さんはどこ", 0.88, true)

	fmt.Println(first.Category, second.Category, second.IsRepeated)
	fmt.Println(d.Stats().RepeatRate)
	// Output:
	// new frequent true
	// 50.0
}
