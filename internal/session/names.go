// internal/session/names.go
package session

import "math/rand"

// roomIDChars omits lookalike characters so ids survive being read aloud.
const roomIDChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateRoomID returns an 8-character room identifier.
func GenerateRoomID() string {
	id := make([]byte, 8)
	for i := range id {
		id[i] = roomIDChars[rand.Intn(len(roomIDChars))]
	}
	return string(id)
}

var firstNames = []string{
	"Sachin", "Virat", "Rohit", "Mahendra", "Rahul", "Sourav",
	"Jasprit", "Yuvraj", "Ravindra", "Hardik", "Shikhar", "Kane",
	"Steve", "Joe", "Ben", "James", "Eoin", "Jos",
	"David", "Mitchell", "Pat", "Glenn", "Kagiso", "Quinton",
	"Faf", "AB", "Dale", "Hashim", "Babar", "Shaheen",
	"Imran", "Wasim", "Javed", "Shoaib", "Inzamam", "Shane",
	"Ricky", "Brett", "Michael", "Justin", "Matthew", "Adam",
	"Chris", "Brian", "Viv", "Garfield", "Curtly", "Malcolm",
	"Clive", "Kumar", "Angelo", "Rangana", "Muttiah", "Sanath",
	"Aravinda", "Tillakaratne", "Ross", "Trent", "Tim", "Martin",
	"Brendon", "Daniel", "Shakib", "Mushfiqur", "Tamim", "Mashrafe",
	"Anil", "Sunil", "Kapil", "Gautam", "Harbhajan", "Zaheer",
}

var lastNames = []string{
	"Tendulkar", "Kohli", "Sharma", "Dhoni", "Dravid", "Ganguly",
	"Bumrah", "Singh", "Jadeja", "Pandya", "Dhawan", "Williamson",
	"Smith", "Root", "Stokes", "Anderson", "Morgan", "Buttler",
	"Warner", "Starc", "Cummins", "Maxwell", "Rabada", "de Kock",
	"du Plessis", "de Villiers", "Steyn", "Amla", "Azam", "Afridi",
	"Khan", "Akram", "Miandad", "Akhtar", "ul-Haq", "Warne",
	"Ponting", "Lee", "Clarke", "Langer", "Hayden", "Gilchrist",
	"Gayle", "Lara", "Richards", "Sobers", "Ambrose", "Marshall",
	"Lloyd", "Sangakkara", "Mathews", "Herath", "Muralitharan", "Jayasuriya",
	"de Silva", "Dilshan", "Taylor", "Boult", "Southee", "Guptill",
	"McCullum", "Vettori", "Al Hasan", "Rahim", "Iqbal", "Mortaza",
	"Kumble", "Gavaskar", "Dev", "Gambhir",
}

// GenerateUsername returns a random cricketer-style display name for a
// freshly created or joined participant.
func GenerateUsername() string {
	return firstNames[rand.Intn(len(firstNames))] + " " + lastNames[rand.Intn(len(lastNames))]
}
