package compose

// Response phrase pools. Each slot of the composed message picks uniformly at
// random from its pool; the opening+main+closing shape and the conditional
// clause rules are the contract, exact wording is not.

var noResultsPool = []string{
	"I couldn't find anything matching that just yet. Try broadening your search a little!",
	"Hmm, nothing matched that search. Maybe try different keywords or a wider price range?",
	"No matches this time! Try loosening the filters and I'll look again.",
	"I came up empty on that one. A broader search usually turns up some lovely pieces!",
}

var followUpOpenings = []string{
	"Sure thing!",
	"Absolutely!",
	"Here you go!",
	"Of course!",
	"You got it!",
}

// personalizedOpenings reference the shopper's top favorite category.
var personalizedOpenings = []string{
	"Since you love %s, you're in for a treat!",
	"More %s finds, just for you!",
	"I remembered you're into %s!",
}

var genericOpenings = []string{
	"Great choice!",
	"Wonderful!",
	"You're going to love these!",
	"Excellent taste!",
}

// occasionPhrases are appended to the main message with the occasion tag.
var occasionPhrases = []string{
	" perfect for your %s celebration",
	" ideal for %s",
	" that would make %s extra special",
}

var closings = []string{
	"Here are my top picks!",
	"Take a look at these!",
	"I think you'll love these picks!",
	"Happy browsing!",
}
