// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package voting implements vote submission.

	svc := voting.NewService(store, bus, logger)
	res, err := svc.Vote(ctx, voting.Ballot{
		User:       user,
		QuestionID: id,
		Choice:     r.PostFormValue("choice"),
		ClientIP:   middleware.GetClientIP(r),
	})

# Flow

 1. Load the published question (ErrQuestionNotFound otherwise).
 2. Parse the choice and check it belongs to the question (ErrNoChoice).
 3. Reject questions outside their voting window (ErrVotingClosed).
 4. Upsert the user's vote and recount every tally in one transaction.
 5. Publish an audit event.

ErrNoChoice and ErrVotingClosed are validation failures: the caller shows
the question again with ValidationMessage(err) and nothing is written.
*/
package voting
