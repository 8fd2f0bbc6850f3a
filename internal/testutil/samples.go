package testutil

// SampleQuiz is a well-formed two question model response.
const SampleQuiz = `Here is your quiz:

Q1. What is 2+2?
A. 3
B. 4
C. 5
D. 6
Answer: B

Q2. Capital of France?
A. Paris
B. Rome
C. Berlin
D. Madrid
Answer: A
`

// SampleDocument is a short multi-paragraph study text.
const SampleDocument = `Photosynthesis converts light energy into chemical energy. It takes place in the chloroplasts of plant cells.

The light dependent reactions happen in the thylakoid membranes. They produce ATP and NADPH.

The Calvin cycle uses ATP and NADPH to fix carbon dioxide into sugars. It runs in the stroma.

Cellular respiration releases the energy stored in glucose. Mitochondria are the site of aerobic respiration.
`
